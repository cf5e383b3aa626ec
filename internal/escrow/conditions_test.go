package escrow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/agentcommerce/acp-core/internal/domain/escrow"
	"github.com/agentcommerce/acp-core/internal/escrow/oracle"
)

type fakeOracleReader struct {
	value float64
	err   error
}

func (f fakeOracleReader) Read(context.Context, oracle.Config) (float64, error) {
	return f.value, f.err
}

func TestCheckConditionsEmptyListIsVacuouslyTrue(t *testing.T) {
	ev := evaluator{}
	esc := domain.Escrow{}
	require.True(t, ev.CheckConditions(context.Background(), esc, domain.KindRelease))
}

func TestCheckConditionsShortCircuitsOnFirstFalse(t *testing.T) {
	ev := evaluator{}
	esc := domain.Escrow{
		ReleaseConditions: []domain.Condition{
			{Type: domain.ConditionCustom, Value: "always_false"},
			{Type: domain.ConditionCustom, Value: "always_true"},
		},
	}
	require.False(t, ev.CheckConditions(context.Background(), esc, domain.KindRelease))
}

func TestCheckConditionsAllTruePasses(t *testing.T) {
	ev := evaluator{}
	esc := domain.Escrow{
		ReleaseConditions: []domain.Condition{
			{Type: domain.ConditionCustom, Value: "always_true"},
			{Type: domain.ConditionTime, Value: "0"},
		},
	}
	require.True(t, ev.CheckConditions(context.Background(), esc, domain.KindRelease))
}

func TestSignatureConditionChecksTxSignatures(t *testing.T) {
	ev := evaluator{}
	esc := domain.Escrow{TxSignatures: []string{"abc123"}}

	present := domain.Condition{Type: domain.ConditionSignature, Value: "abc123"}
	require.True(t, ev.evalOne(context.Background(), esc, present))

	absent := domain.Condition{Type: domain.ConditionSignature, Value: "nope"}
	require.False(t, ev.evalOne(context.Background(), esc, absent))
}

func TestOracleConditionComparesAgainstResolvedValue(t *testing.T) {
	ev := evaluator{oracleReader: fakeOracleReader{value: 150}}
	esc := domain.Escrow{}

	c := domain.Condition{Type: domain.ConditionOracle, Value: "pyth:feed1:gte:100"}
	require.True(t, ev.evalOne(context.Background(), esc, c))

	c2 := domain.Condition{Type: domain.ConditionOracle, Value: "pyth:feed1:lt:100"}
	require.False(t, ev.evalOne(context.Background(), esc, c2))
}

func TestOracleConditionFailsClosedOnFetchError(t *testing.T) {
	ev := evaluator{oracleReader: fakeOracleReader{err: errNoAccountFetcher}}
	esc := domain.Escrow{}
	c := domain.Condition{Type: domain.ConditionOracle, Value: "pyth:feed1:gte:100"}
	require.False(t, ev.evalOne(context.Background(), esc, c))
}

func TestCustomConditionUnknownNameFailsClosed(t *testing.T) {
	ev := evaluator{}
	esc := domain.Escrow{}
	c := domain.Condition{Type: domain.ConditionCustom, Value: "does_not_exist"}
	require.False(t, ev.evalOne(context.Background(), esc, c))
}

func TestCustomConditionPanicFailsClosed(t *testing.T) {
	RegisterCustomCondition("panics", func(context.Context, domain.Escrow, domain.Condition) bool {
		panic("boom")
	})
	ev := evaluator{}
	esc := domain.Escrow{}
	c := domain.Condition{Type: domain.ConditionCustom, Value: "panics"}
	require.False(t, ev.evalOne(context.Background(), esc, c))
}

func TestMinAgeCustomCondition(t *testing.T) {
	ev := evaluator{}
	esc := domain.Escrow{CreatedAt: time.Now().UTC().Add(-time.Hour)}
	c := domain.Condition{Type: domain.ConditionCustom, Value: "min_age:1000"}
	require.True(t, ev.evalOne(context.Background(), esc, c))

	tooYoung := domain.Escrow{CreatedAt: time.Now().UTC()}
	c2 := domain.Condition{Type: domain.ConditionCustom, Value: "min_age:3600000"}
	require.False(t, ev.evalOne(context.Background(), tooYoung, c2))
}
