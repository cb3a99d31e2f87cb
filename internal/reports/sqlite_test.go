package reports

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"querygate/internal/db"
	"querygate/internal/logging"
	"querygate/internal/query"
)

// newPromoGateway runs the built-in promotions template against an in-memory
// SQLite database.
func newPromoGateway(t *testing.T) (*query.Gateway, Report) {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, db.Options{Driver: db.DriverSQLite, DSN: ":memory:", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.ExecContext(ctx, `CREATE TABLE vw_fxin_cb_promos (codfilial INTEGER, codprod INTEGER, descricao TEXT)`)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, `INSERT INTO vw_fxin_cb_promos VALUES
		(1, 10, 'Desconto de verao'),
		(1, 11, 'Leve 3 pague 2'),
		(1, 12, 'Cupom '' OR ''1''=''1 especial'),
		(2, 13, 'Desconto de inverno')`)
	require.NoError(t, err)

	cat, err := DefaultCatalog()
	require.NoError(t, err)
	var promo Report
	for _, r := range cat {
		if r.Name == "promotions" {
			promo = r
		}
	}
	require.NotEmpty(t, promo.SQL)

	exec := db.NewExecutor(conn, db.DriverSQLite, 5*time.Second)
	return query.NewGateway(exec, logging.Discard()), promo
}

func runPromo(t *testing.T, gw *query.Gateway, promo Report, branch, phrase string) query.Outcome {
	t.Helper()
	params, err := promo.Bind(url.Values{"codfilial": {branch}, "condicoes": {phrase}})
	require.NoError(t, err)
	return gw.Execute(context.Background(), promo.Request(params))
}

func codprods(out query.Outcome) []int64 {
	var ids []int64
	for _, r := range out.Rows {
		v, _ := r.Get("codprod")
		ids = append(ids, v.(int64))
	}
	return ids
}

func TestPromotions_SubstringMatch(t *testing.T) {
	gw, promo := newPromoGateway(t)

	out := runPromo(t, gw, promo, "1", "DESCONTO")
	require.True(t, out.IsRows(), "outcome %v: %v", out.Kind, out.Err)
	assert.Equal(t, []int64{10}, codprods(out))

	out = runPromo(t, gw, promo, "1", "")
	assert.ElementsMatch(t, []int64{10, 11, 12}, codprods(out))
}

func TestPromotions_InjectionIsALiteral(t *testing.T) {
	gw, promo := newPromoGateway(t)

	out := runPromo(t, gw, promo, "1", "' OR '1'='1")
	require.True(t, out.IsRows(), "outcome %v: %v", out.Kind, out.Err)
	assert.Equal(t, []int64{12}, codprods(out), "only the row containing the literal text matches")

	out = runPromo(t, gw, promo, "1", "x' OR 'x'='x")
	assert.True(t, out.IsEmpty(), "injection attempt must not widen the result")

	out = runPromo(t, gw, promo, "1", "'; DROP TABLE vw_fxin_cb_promos; --")
	assert.True(t, out.IsEmpty())
	out = runPromo(t, gw, promo, "2", "desconto")
	assert.Equal(t, []int64{13}, codprods(out), "table still intact")
}

func TestPromotions_EmptyVersusFailure(t *testing.T) {
	gw, promo := newPromoGateway(t)

	out := runPromo(t, gw, promo, "99", "desconto")
	assert.Equal(t, query.KindEmpty, out.Kind)

	broken := promo
	broken.SQL = "SELECT * FROM no_such_view WHERE codfilial = ? AND descricao = ?"
	params, err := broken.Bind(url.Values{"codfilial": {"1"}, "condicoes": {"x"}})
	require.NoError(t, err)
	out = gw.Execute(context.Background(), broken.Request(params))
	assert.Equal(t, query.KindFailure, out.Kind)
	assert.Error(t, out.Err)
}

func TestPromotions_CanceledContext(t *testing.T) {
	gw, promo := newPromoGateway(t)
	params, err := promo.Bind(url.Values{"codfilial": {"1"}, "condicoes": {"desconto"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := gw.Execute(ctx, promo.Request(params))
	assert.True(t, out.IsFailure())
	assert.ErrorIs(t, out.Err, context.Canceled)
}
