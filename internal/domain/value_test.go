package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessRecordDecode(t *testing.T) {
	payload := `{
		"process": [
			{"process": "DryPlan", "plan_date": "2024-03-01", "plan_qty": 1200, "machine": "DP01",
			 "skin_resin": "SR-1", "binder_resin": null, "base": "B7"},
			{"process": "DryMix", "create_date": "2024-03-02 08:15:42", "machine": "DM02",
			 "chemical": {"Zeta": 3.5, "Alpha": "10", "Mid": 0}},
			{"process": "Laminating", "create_date": "2024-03-02 09:00:00"}
		]
	}`

	var st OrderStatus
	require.NoError(t, json.Unmarshal([]byte(payload), &st))
	require.Len(t, st.Process, 3)

	plan := st.Process[0]
	assert.Equal(t, KindDryPlan, plan.Process)
	assert.Equal(t, "1200", plan.PlanQty.String())
	assert.True(t, plan.BinderResin.Missing())
	assert.False(t, plan.Base.Missing())

	mix := st.Process[1]
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, mix.Chemical.Names())
	assert.Equal(t, "3.5", mix.Chemical[0].Qty.String())
	assert.Equal(t, "10", mix.Chemical[1].Qty.String())

	assert.Equal(t, Kind("Laminating"), st.Process[2].Process)
	assert.False(t, st.Process[2].Process.Known())
}

func TestChemicalsKeepOrderOnEncode(t *testing.T) {
	rec := ProcessRecord{
		Process: KindDryMix,
		Chemical: Chemicals{
			{Name: "B", Qty: Text("20")},
			{Name: "A", Qty: Text("10")},
		},
	}
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"process":"DryMix","chemical":{"B":"20","A":"10"}}`, string(b))
	assert.Contains(t, string(b), `{"B":"20","A":"10"}`)

	var back ProcessRecord
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, []string{"B", "A"}, back.Chemical.Names())
}

func TestChemicalsNullAndMissing(t *testing.T) {
	var rec ProcessRecord
	require.NoError(t, json.Unmarshal([]byte(`{"process":"DryMix","chemical":null}`), &rec))
	assert.Nil(t, rec.Chemical)

	rec = ProcessRecord{}
	require.NoError(t, json.Unmarshal([]byte(`{"process":"DryMix"}`), &rec))
	assert.Empty(t, rec.Chemical)
}

func TestNumbersSurviveReencode(t *testing.T) {
	in := `{"process":"DryMix","pd_qty":1480,"plan_qty":"1200","chemical":{"Resin":120,"Solvent":35.5,"Base":"7"}}`

	var rec ProcessRecord
	require.NoError(t, json.Unmarshal([]byte(in), &rec))
	b, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, in, string(b))
	assert.Contains(t, string(b), `{"Resin":120,"Solvent":35.5,"Base":"7"}`)
}

func TestNonScalarFieldsDecodeAsMissing(t *testing.T) {
	in := `{"process":"DryLine","machine":["DL03"],"pd_qty":{"v":5},"create_date":"2024-03-02 09:30:59"}`

	var rec ProcessRecord
	require.NoError(t, json.Unmarshal([]byte(in), &rec))
	assert.Equal(t, KindDryLine, rec.Process)
	assert.True(t, rec.Machine.Missing())
	assert.True(t, rec.PdQty.Missing())
	assert.False(t, rec.CreateDate.Missing())
}

func TestChemicalsTolerateMalformedInput(t *testing.T) {
	var rec ProcessRecord
	require.NoError(t, json.Unmarshal([]byte(`{"process":"DryMix","chemical":[1,2]}`), &rec))
	assert.Empty(t, rec.Chemical)

	rec = ProcessRecord{}
	require.NoError(t, json.Unmarshal([]byte(`{"process":"DryMix","chemical":{"A":{"kg":1},"B":2}}`), &rec))
	require.Equal(t, []string{"A", "B"}, rec.Chemical.Names())
	assert.True(t, rec.Chemical[0].Qty.Missing())
	assert.Equal(t, "2", rec.Chemical[1].Qty.String())
}

func TestKindDecodesAnyValue(t *testing.T) {
	cases := map[string]Kind{
		`{"process":"RP"}`:          KindRP,
		`{"process":7}`:             Kind("7"),
		`{"process":null}`:          Kind(""),
		`{"process":{"name":"RP"}}`: Kind(`{"name":"RP"}`),
	}
	for in, want := range cases {
		var rec ProcessRecord
		require.NoError(t, json.Unmarshal([]byte(in), &rec), in)
		assert.Equal(t, want, rec.Process, in)
	}
	assert.False(t, Kind("7").Known())
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 2, 8, 15, 42, 0, time.UTC)
	for _, in := range []string{
		"2024-03-02 08:15:42",
		"2024-03-02T08:15:42",
		"2024-03-02T08:15:42Z",
		"2024-03-02 08:15:42.000000",
		"2024-03-02 08:15:42+00:00",
		"2024-03-02 08:15:42+00",
	} {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s -> %s", in, got)
	}

	got, err := ParseTimestamp("2024-03-02 10:15:42+02:00")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	_, err = ParseTimestamp("yesterday")
	assert.True(t, errors.Is(err, ErrBadTimestamp))
}

func TestKindKnown(t *testing.T) {
	for _, k := range Pipeline {
		assert.True(t, k.Known(), k)
	}
	assert.False(t, Kind("dryplan").Known())
	assert.False(t, Kind("").Known())
}
