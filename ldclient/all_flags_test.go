package ldclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flagkit/flagkit-go/interfaces/flagstate"
	"github.com/flagkit/flagkit-go/ldvalue"
	"github.com/flagkit/flagkit-go/lduser"
)

func TestAllFlagsStateReturnsEveryFlagsValue(t *testing.T) {
	client, _ := newTestClient(
		boolFlag("flag-a", true, true),
		boolFlag("flag-b", true, false),
	)
	state := client.AllFlagsState(lduser.NewUser("user1"))
	require.True(t, state.IsValid())

	a, ok := state.GetFlag("flag-a")
	require.True(t, ok)
	assert.True(t, a.Value.Bool())

	b, ok := state.GetFlag("flag-b")
	require.True(t, ok)
	assert.False(t, b.Value.Bool())
}

func TestAllFlagsStateClientSideOnlyFiltersOutServerSideFlags(t *testing.T) {
	serverSide := boolFlag("server-only", true, true)
	clientSide := boolFlag("client-visible", true, true)
	clientSide.ClientSide = true

	client, _ := newTestClient(serverSide, clientSide)
	state := client.AllFlagsState(lduser.NewUser("user1"), flagstate.OptionClientSideOnly())

	_, foundServer := state.GetFlag("server-only")
	assert.False(t, foundServer)
	_, foundClient := state.GetFlag("client-visible")
	assert.True(t, foundClient)
}

func TestAllFlagsStateWhenOfflineReturnsInvalid(t *testing.T) {
	client, err := NewClient("fake-key", Config{Offline: true}, 0)
	require.NoError(t, err)
	state := client.AllFlagsState(lduser.NewUser("user1"))
	assert.False(t, state.IsValid())
}

func TestAllFlagsStateMarshalJSONShape(t *testing.T) {
	builder := flagstate.NewAllFlagsBuilder(flagstate.OptionWithReasons())
	builder.AddFlag("flag-a", flagstate.FlagState{
		Value:     ldvalue.Bool(true),
		Variation: 0,
		Version:   2,
	})
	out := builder.Build()

	bytes, err := out.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(bytes), `"flag-a":true`)
	assert.Contains(t, string(bytes), `"$valid":true`)
	assert.Contains(t, string(bytes), `"$flagsState"`)
}
