/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type testDocument struct {
	Title string   `json:"title" yaml:"title"`
	Tags  []string `json:"tags" yaml:"tags"`
	Size  int      `json:"size" yaml:"size"`
}

func TestChannel(t *testing.T) {
	ctx := context.Background()
	doc := testDocument{Title: "report", Tags: []string{"q1", "draft"}, Size: 42}

	tests := []struct {
		name  string
		codec Codec[testDocument]
	}{
		{name: "json", codec: JSONCodec[testDocument]{}},
		{name: "yaml", codec: YAMLCodec[testDocument]{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			ch := NewChannel[string, testDocument](store, StringCodec{}, tt.codec)

			_, err := ch.Read(ctx, "doc:1")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, ch.Write(ctx, "doc:1", doc))
			got, err := ch.Read(ctx, "doc:1")
			require.NoError(t, err)
			require.Equal(t, doc, got)

			require.NoError(t, ch.Delete(ctx, "doc:1"))
			_, err = ch.Read(ctx, "doc:1")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, ch.Close())
			require.ErrorIs(t, ch.Write(ctx, "doc:1", doc), ErrStoreClosed)
		})
	}
}

func TestChannel_DecodeError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Write(ctx, []byte("doc:1"), []byte("{not json")))

	ch := NewChannel[string, testDocument](store, StringCodec{}, JSONCodec[testDocument]{})
	_, err := ch.Read(ctx, "doc:1")
	require.ErrorContains(t, err, "decode value")
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestBytesCodec_CopiesData(t *testing.T) {
	src := []byte("payload")
	encoded, err := BytesCodec{}.Encode(src)
	require.NoError(t, err)
	src[0] = 'P'
	require.Equal(t, []byte("payload"), encoded)

	decoded, err := BytesCodec{}.Decode(encoded)
	require.NoError(t, err)
	encoded[0] = 'X'
	require.Equal(t, []byte("payload"), decoded)
}
