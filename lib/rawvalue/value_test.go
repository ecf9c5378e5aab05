package rawvalue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	var decoded any
	err := json.Unmarshal([]byte(`{
		"title": "Solo Leveling",
		"meta": {"episodes": 179, "completed": true},
		"authors": [{"name": "Chugong"}, {"name": "Dubu"}]
	}`), &decoded)
	require.NoError(t, err)
	record := FromAny(decoded)

	testCases := []struct {
		path string
		want any
		ok   bool
	}{
		{path: "title", want: "Solo Leveling", ok: true},
		{path: "meta.episodes", want: int64(179), ok: true},
		{path: "meta.completed", want: true, ok: true},
		{path: "authors.0.name", want: "Chugong", ok: true},
		{path: "authors.1.name", want: "Dubu", ok: true},
		{path: "authors.2.name", ok: false},
		{path: "authors.x.name", ok: false},
		{path: "meta.missing", ok: false},
		{path: "title.nested", ok: false},
	}

	for _, test := range testCases {
		got, ok := record.Resolve(test.path)
		require.Equal(t, test.ok, ok, "path %q", test.path)
		if test.ok {
			require.Equal(t, test.want, got.Interface(), "path %q", test.path)
		}
	}
}

func TestInterfaceRoundTrip(t *testing.T) {
	record := Map(map[string]Value{
		"rank":  Number(3),
		"score": Number(8.75),
		"tags":  List(String("action"), String("fantasy")),
	})

	out, err := json.Marshal(record.Interface())
	require.NoError(t, err)
	require.JSONEq(t, `{"rank":3,"score":8.75,"tags":["action","fantasy"]}`, string(out))
}

func TestTextScalars(t *testing.T) {
	text, ok := Number(42).Text()
	require.True(t, ok)
	require.Equal(t, "42", text)

	_, ok = List().Text()
	require.False(t, ok)
}
