package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceStub struct {
	URL     string
	Timeout int
}

type sourceConf struct {
	URL     string `json:"url"`
	Timeout int    `json:"timeout_seconds"`
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sourceStub]()
	require.NoError(t, reg.Register("live", func(conf map[string]any) (*sourceStub, error) {
		var c sourceConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sourceStub{URL: c.URL, Timeout: c.Timeout}, nil
	}))
	inst, err := reg.Create(ModuleConfig{Type: "live", Conf: map[string]any{"url": "http://pi:5000", "timeout_seconds": "3"}})
	require.NoError(t, err)
	assert.Equal(t, "http://pi:5000", inst.URL)
	assert.Equal(t, 3, inst.Timeout)
}

func TestDecodeStrict(t *testing.T) {
	in := map[string]any{"url": "http://pi:5000", "timeout": 3}

	var loose sourceConf
	require.NoError(t, Decode(in, &loose))
	assert.Equal(t, 0, loose.Timeout)

	var strict sourceConf
	err := DecodeStrict(in, &strict)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")

	require.NoError(t, DecodeStrict(map[string]any{"timeout_seconds": "4"}, &strict))
	assert.Equal(t, 4, strict.Timeout)
}

func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	require.NoError(t, reg.Register("x", func(map[string]any) (int, error) { return 1, nil }))
	assert.Error(t, reg.Register("x", func(map[string]any) (int, error) { return 2, nil }))
	assert.Error(t, reg.Register("y", nil))
	_, err := reg.Create(ModuleConfig{Type: "y"})
	assert.Error(t, err)
	assert.Panics(t, func() { reg.MustRegister("x", func(map[string]any) (int, error) { return 3, nil }) })
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry[int]()
	reg.MustRegister("b", func(map[string]any) (int, error) { return 0, nil })
	reg.MustRegister("a", func(map[string]any) (int, error) { return 0, nil })
	assert.Equal(t, []string{"a", "b"}, reg.Names())
}
