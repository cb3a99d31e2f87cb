package reports

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"querygate/internal/query"
)

// DateLayout is the DD/MM/YYYY format report dates arrive in.
const DateLayout = "02/01/2006"

const defaultMaxTextLen = 200

type ValidationReason string

const (
	ReasonMissingParam    ValidationReason = "missing_param"
	ReasonNonPositiveCode ValidationReason = "non_positive_code"
	ReasonMalformedCode   ValidationReason = "malformed_code"
	ReasonMalformedDate   ValidationReason = "malformed_date"
	ReasonInvalidRange    ValidationReason = "invalid_range"
	ReasonTextTooLong     ValidationReason = "text_too_long"
)

// ValidationError rejects a request before it reaches the database.
type ValidationError struct {
	Param  string
	Reason ValidationReason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("param %s: %s", e.Param, e.Reason)
}

// Detail is the message returned to the client.
func (e *ValidationError) Detail() string {
	switch e.Reason {
	case ReasonMissingParam:
		return fmt.Sprintf("missing parameter %s", e.Param)
	case ReasonNonPositiveCode, ReasonMalformedCode:
		return fmt.Sprintf("invalid code in %s", e.Param)
	case ReasonMalformedDate:
		return fmt.Sprintf("invalid date in %s, expected DD/MM/YYYY", e.Param)
	case ReasonInvalidRange:
		return fmt.Sprintf("%s is before the start of the range", e.Param)
	case ReasonTextTooLong:
		return fmt.Sprintf("%s is too long", e.Param)
	default:
		return "invalid request"
	}
}

// Bind turns URL query values into the ordered bound params of r. Codes become
// int64, dates are validated and passed on in DD/MM/YYYY form for the
// template's TO_DATE, text passes through unchanged.
func (r *Report) Bind(values url.Values) ([]query.Param, error) {
	params := make([]query.Param, 0, len(r.Params))
	dates := make(map[string]time.Time)
	for _, spec := range r.Params {
		raw, ok := values[spec.Name]
		if !ok || len(raw) == 0 || (spec.Kind != KindText && raw[0] == "") {
			return nil, &ValidationError{Param: spec.Name, Reason: ReasonMissingParam}
		}
		v := raw[0]

		var bound any
		switch spec.Kind {
		case KindCode:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, &ValidationError{Param: spec.Name, Reason: ReasonMalformedCode}
			}
			if n <= 0 {
				return nil, &ValidationError{Param: spec.Name, Reason: ReasonNonPositiveCode}
			}
			bound = n
		case KindDate:
			t, err := time.Parse(DateLayout, v)
			if err != nil {
				return nil, &ValidationError{Param: spec.Name, Reason: ReasonMalformedDate}
			}
			if spec.NotBefore != "" {
				if start, ok := dates[spec.NotBefore]; ok && t.Before(start) {
					return nil, &ValidationError{Param: spec.Name, Reason: ReasonInvalidRange}
				}
			}
			dates[spec.Name] = t
			bound = t.Format(DateLayout)
		case KindText:
			limit := spec.MaxLen
			if limit <= 0 {
				limit = defaultMaxTextLen
			}
			if utf8.RuneCountInString(v) > limit {
				return nil, &ValidationError{Param: spec.Name, Reason: ReasonTextTooLong}
			}
			bound = v
		}
		sensitive := spec.Sensitive || spec.Kind == KindText
		params = append(params, query.Param{Name: spec.Name, Value: bound, Sensitive: sensitive})
	}
	return params, nil
}

// Request builds the gateway request for already bound params.
func (r *Report) Request(params []query.Param) query.Request {
	return query.Request{Name: r.Name, Template: r.SQL, Params: params}
}
