package contract_test

import (
	"testing"

	"github.com/Mohsinsiddi/rafflekit/internal/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// GetBuiltin / GetBuiltinABI / AllBuiltins
// ---------------------------------------------------------------------------

// registerTestBuiltin injects a test builtin for the duration of a test.
// It uses a unique ID to avoid colliding with real builtins.
func registerTestBuiltin(t *testing.T, id, name string, abi []contract.ABIEntry) {
	t.Helper()
	contract.RegisterBuiltin(contract.BuiltinKind{
		ID:          id,
		Name:        name,
		Description: "test builtin for " + name,
		ABI:         abi,
	})
}

func TestGetBuiltinFound(t *testing.T) {
	id := "test-builtin-found"
	registerTestBuiltin(t, id, "Test Token", []contract.ABIEntry{
		{Name: "transfer", Type: "function"},
	})

	b, ok := contract.GetBuiltin(id)
	require.True(t, ok)
	assert.Equal(t, id, b.ID)
	assert.Equal(t, "Test Token", b.Name)
	assert.Len(t, b.ABI, 1)
}

func TestGetBuiltinNotFound(t *testing.T) {
	_, ok := contract.GetBuiltin("this-id-does-not-exist-xyz")
	assert.False(t, ok)
}

func TestGetBuiltinABIFound(t *testing.T) {
	id := "test-builtin-abi-found"
	abi := []contract.ABIEntry{
		{Name: "balanceOf", Type: "function", StateMutability: "view"},
		{Name: "Transfer", Type: "event"},
	}
	registerTestBuiltin(t, id, "ABI Token", abi)

	got := contract.GetBuiltinABI(id)
	require.NotNil(t, got)
	assert.Len(t, got, 2)
	assert.Equal(t, "balanceOf", got[0].Name)
	assert.Equal(t, "Transfer", got[1].Name)
}

func TestGetBuiltinABINotFound(t *testing.T) {
	got := contract.GetBuiltinABI("completely-unknown-id-abc123")
	assert.Nil(t, got)
}

func TestAllBuiltinsReturnsSorted(t *testing.T) {
	// Register a few test builtins with known IDs.
	contract.RegisterBuiltin(contract.BuiltinKind{ID: "zzz-test", Name: "ZZZ"})
	contract.RegisterBuiltin(contract.BuiltinKind{ID: "aaa-test", Name: "AAA"})
	contract.RegisterBuiltin(contract.BuiltinKind{ID: "mmm-test", Name: "MMM"})

	all := contract.AllBuiltins()
	require.NotEmpty(t, all)

	// Verify ordering is ascending by ID.
	for i := 1; i < len(all); i++ {
		assert.LessOrEqual(t, all[i-1].ID, all[i].ID,
			"AllBuiltins must be sorted by ID: %s > %s", all[i-1].ID, all[i].ID)
	}
}

func TestAllBuiltinsIncludesDeployables(t *testing.T) {
	ids := map[string]bool{}
	for _, b := range contract.AllBuiltins() {
		ids[b.ID] = true
	}
	assert.True(t, ids[contract.RaffleName], "Raffle builtin should be registered")
	assert.True(t, ids[contract.CoordinatorMockName], "coordinator mock builtin should be registered")
}

func TestBuiltinABIsValidate(t *testing.T) {
	for _, id := range []string{contract.RaffleName, contract.CoordinatorMockName} {
		t.Run(id, func(t *testing.T) {
			assert.NoError(t, contract.Validate(contract.GetBuiltinABI(id)))
		})
	}
}

func TestRaffleABIShape(t *testing.T) {
	abi := contract.GetBuiltinABI(contract.RaffleName)

	enter, ok := contract.Find(abi, "function", "enterRaffle")
	require.True(t, ok)
	assert.Equal(t, "payable", enter.StateMutability)

	for _, ev := range []string{"RaffleEntered", "RequestedRaffleWinner", "WinnerPicked"} {
		_, ok := contract.Find(abi, "event", ev)
		assert.True(t, ok, "missing event %s", ev)
	}

	upkeepErr, ok := contract.Find(abi, "error", "Raffle__UpkeepNotNeeded")
	require.True(t, ok)
	assert.Len(t, upkeepErr.Inputs, 3)
}

func TestRegisterBuiltinOverwrites(t *testing.T) {
	id := "test-overwrite-builtin"
	contract.RegisterBuiltin(contract.BuiltinKind{ID: id, Name: "First"})
	contract.RegisterBuiltin(contract.BuiltinKind{ID: id, Name: "Second"})

	b, ok := contract.GetBuiltin(id)
	require.True(t, ok)
	assert.Equal(t, "Second", b.Name, "second RegisterBuiltin should overwrite first")
}
