package connect

import (
	"testing"

	"github.com/joshua-takyi/bashbay-client/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeListShapes(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		ids   []string
		next  string
		count int
	}{
		{"bare array", `[{"id":"c1"},{"id":"c2"}]`, []string{"c1", "c2"}, "", 2},
		{"paginated", `{"count":7,"next":"https://api.example.com/x/?page=2","results":[{"id":"c1"}]}`, []string{"c1"}, "https://api.example.com/x/?page=2", 7},
		{"last page", `{"count":1,"next":null,"results":[{"id":"c1"}]}`, []string{"c1"}, "", 1},
		{"conversations frame", `{"type":"chat_list","conversations":[{"id":"c9"}]}`, []string{"c9"}, "", 1},
		{"data envelope", `{"data":[]}`, []string{}, "", 0},
		{"null", `null`, []string{}, "", 0},
		{"empty", ``, []string{}, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := DecodeList[models.Conversation]([]byte(tt.raw))
			require.NoError(t, err)

			got := make([]string, len(page.Items))
			for i, c := range page.Items {
				got[i] = c.ID
			}
			assert.Equal(t, tt.ids, got)
			assert.Equal(t, tt.next, page.Next)
			assert.Equal(t, tt.count, page.Count)
		})
	}
}

func TestDecodeListMalformed(t *testing.T) {
	for _, raw := range []string{
		`{"detail":"nope"}`,
		`{"results":{"id":"c1"}}`,
		`[{"id":`,
		`"just a string"`,
	} {
		_, err := DecodeList[models.Conversation]([]byte(raw))
		var dataErr *models.DataError
		assert.ErrorAs(t, err, &dataErr, raw)
	}
}
