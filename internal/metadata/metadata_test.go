package metadata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransitiveMutations(t *testing.T) {
	info, err := New("Counter",
		[]string{"value", "step", "label"},
		[]string{"double"},
		map[string]Method{
			"inc":   {Calls: []string{"bump"}},
			"bump":  {Assigns: []string{"value"}},
			"reset": {Assigns: []string{"value", "step"}, Calls: []string{"log"}},
			"log":   {Calls: []string{"fmt.Println"}},
		})
	require.NoError(t, err)

	assert.Equal(t, "Counter", info.Name())
	assert.Equal(t, []string{"label", "step", "value"}, info.Properties())
	assert.Equal(t, []string{"double"}, info.Getters())
	assert.Equal(t, []string{"bump", "inc", "log", "reset"}, info.Methods())

	assert.Equal(t, []string{"bump"}, info.Reachable("inc"))
	assert.Equal(t, []string{"value"}, info.Mutates("inc"))
	assert.Equal(t, []string{"step", "value"}, info.Mutates("reset"))
	assert.Empty(t, info.Mutates("log"))

	assert.True(t, info.CanMutate("value"))
	assert.True(t, info.CanMutate("step"))
	assert.False(t, info.CanMutate("label"))
	assert.True(t, HasMutableState(info))
}

func TestNewHandlesCycles(t *testing.T) {
	info := MustNew("Loop", []string{"a", "b", "c"}, nil, map[string]Method{
		"self":  {Calls: []string{"self"}, Assigns: []string{"a"}},
		"ping":  {Calls: []string{"pong"}},
		"pong":  {Calls: []string{"ping"}, Assigns: []string{"b"}},
		"entry": {Calls: []string{"ping"}},
	})

	assert.Equal(t, []string{"self"}, info.Reachable("self"))
	assert.Equal(t, []string{"ping", "pong"}, info.Reachable("ping"))
	assert.Equal(t, []string{"ping", "pong"}, info.Reachable("entry"))
	assert.Equal(t, []string{"b"}, info.Mutates("entry"))
	assert.False(t, info.CanMutate("c"))
}

func TestNewRejectsDuplicateMembers(t *testing.T) {
	_, err := New("Dup", []string{"value"}, []string{"value"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"value" declared as both property and getter`)

	_, err = New("Empty", []string{""}, nil, nil)
	require.Error(t, err)
}

func TestMemberKinds(t *testing.T) {
	info := MustNew("C", []string{"p"}, []string{"g"}, map[string]Method{"m": {}})

	assert.Equal(t, MemberProperty, info.Member("p"))
	assert.Equal(t, MemberGetter, info.Member("g"))
	assert.Equal(t, MemberMethod, info.Member("m"))
	assert.Equal(t, MemberNone, info.Member("x"))
	assert.Equal(t, "getter", MemberGetter.String())
	assert.Equal(t, []string{"g", "m", "p"}, Members(info))
	assert.False(t, HasMutableState(info))
}

func TestAccessorsReturnCopies(t *testing.T) {
	info := MustNew("C", []string{"a", "b"}, nil, map[string]Method{"m": {Assigns: []string{"a"}}})
	props := info.Properties()
	props[0] = "zzz"
	assert.Equal(t, []string{"a", "b"}, info.Properties())
}

func TestParseManifest(t *testing.T) {
	src := `
name: Counter
properties: [value, step]
getters: [double]
methods:
  inc: {calls: [bump]}
  bump: {assigns: [value]}
  noop:
`
	info, err := ParseManifest(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, "Counter", info.Name())
	assert.Equal(t, []string{"value"}, info.Mutates("inc"))
	assert.Equal(t, MemberMethod, info.Member("noop"))

	m := ToManifest(info)
	assert.Equal(t, []string{"bump"}, m.Methods["inc"].Calls)
	assert.Equal(t, []string{"value"}, m.Methods["inc"].Assigns)
}

func TestParseManifestErrors(t *testing.T) {
	_, err := ParseManifest(strings.NewReader("properties: [a]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no name")

	_, err = ParseManifest(strings.NewReader("name: A\nunknown: 1\n"))
	require.Error(t, err)
}
