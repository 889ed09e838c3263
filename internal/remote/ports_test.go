package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lottoledger/internal/core"
)

func TestNewestFirst(t *testing.T) {
	base := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	in := []core.Transaction{
		{ID: "old", CreatedAt: base},
		{ID: "b", CreatedAt: base.Add(time.Hour)},
		{ID: "a", CreatedAt: base.Add(time.Hour)},
		{ID: "new", CreatedAt: base.Add(2 * time.Hour)},
	}

	got := NewestFirst(in)

	ids := make([]string, len(got))
	for i, tx := range got {
		ids[i] = tx.ID
	}
	assert.Equal(t, []string{"new", "a", "b", "old"}, ids)
	assert.Equal(t, "old", in[0].ID, "input is not modified")
}
