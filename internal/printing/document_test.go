package printing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentPageCountSetOnce(t *testing.T) {
	d := NewDocument(1, "doc")
	assert.Equal(t, -1, d.PageCount())

	d.SetPageCount(3)
	assert.Equal(t, 3, d.PageCount())

	d.SetPageCount(7)
	assert.Equal(t, 3, d.PageCount(), "later counts are ignored")

	d2 := NewDocument(2, "doc")
	d2.SetPageCount(-5)
	assert.Equal(t, -1, d2.PageCount())
}

func TestDocumentSetPage(t *testing.T) {
	d := NewDocument(1, "doc")
	d.SetPageCount(2)

	assert.True(t, d.SetPage(Page{Number: 1, Data: []byte("a")}))
	assert.False(t, d.SetPage(Page{Number: 1, Data: []byte("b")}), "duplicate")
	assert.False(t, d.SetPage(Page{Number: 0}), "pages are numbered from 1")
	assert.False(t, d.SetPage(Page{Number: 3}), "out of range")
	assert.Equal(t, 1, d.RenderedCount())
}

func TestDocumentAcceptsPagesBeforeCount(t *testing.T) {
	d := NewDocument(1, "doc")

	assert.True(t, d.SetPage(Page{Number: 5}))
	assert.False(t, d.IsComplete())

	d.SetPageCount(5)
	assert.Equal(t, []int{1, 2, 3, 4}, d.MissingPages())
}

func TestDocumentIsComplete(t *testing.T) {
	d := NewDocument(1, "doc")
	assert.False(t, d.IsComplete(), "unknown page count is never complete")

	d.SetPageCount(2)
	assert.False(t, d.IsComplete())

	d.SetPage(Page{Number: 1})
	d.SetPage(Page{Number: 2})
	assert.True(t, d.IsComplete())
	assert.Nil(t, d.MissingPages())
}

func TestDocumentZeroPagesIsComplete(t *testing.T) {
	d := NewDocument(1, "doc")
	d.SetPageCount(0)
	assert.True(t, d.IsComplete())
}
