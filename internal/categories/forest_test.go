package categories

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cleared-dev/releve/internal/model"
)

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func sampleForest() *Forest {
	return NewForest([]model.Category{
		{ID: 1, Name: "Logement"},
		{ID: 2, Name: "Charges", ParentID: 1},
		{ID: 3, Name: "Eau", ParentID: 2},
		{ID: 4, Name: "Alimentation"},
	})
}

func TestForest_Ancestry(t *testing.T) {
	f := sampleForest()

	assert.True(t, f.IsAncestor(1, 3))
	assert.True(t, f.IsAncestor(3, 3))
	assert.False(t, f.IsAncestor(3, 1))
	assert.False(t, f.IsAncestor(4, 3))

	assert.Equal(t, []int64{1, 2, 3}, f.Descendants(1))
	assert.Equal(t, "Logement > Charges > Eau", f.Path(3))
	assert.Empty(t, f.Path(99))

	root, ok := f.Root(3)
	assert.True(t, ok)
	assert.Equal(t, int64(1), root.ID)
	root, _ = f.Root(4)
	assert.Equal(t, int64(4), root.ID)
}

func TestForest_ChildrenSortedByName(t *testing.T) {
	f := sampleForest()
	roots := f.Children(0)
	assert.Equal(t, "Alimentation", roots[0].Name)
	assert.Equal(t, "Logement", roots[1].Name)
}
