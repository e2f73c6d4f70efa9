package listing

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_settersResetPaging(t *testing.T) {
	tests := []struct {
		name string
		set  func(p *Params)
	}{
		{name: "SetSearch", set: func(p *Params) { p.SetSearch("react") }},
		{name: "SetFilter", set: func(p *Params) { p.SetFilter("status", "active") }},
		{name: "SetFilter to all", set: func(p *Params) { p.SetFilter("status", "all") }},
		{name: "SetSort", set: func(p *Params) { p.SetSort("title", true) }},
		{name: "SetPageSize", set: func(p *Params) { p.SetPageSize(50) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParams()
			p.SetPage(4)
			tt.set(&p)
			if p.Page != 1 {
				t.Errorf("page = %d; want 1", p.Page)
			}
		})
	}
}

func TestParams_SetSearch(t *testing.T) {
	p := NewParams()
	p.SetPage(4)
	p.SetSearch("react")
	if p.Search != "react" {
		t.Errorf("search = %q; want %q", p.Search, "react")
	}
	if p.Page != 1 {
		t.Errorf("page = %d; want 1", p.Page)
	}
}

func TestParams_Values(t *testing.T) {
	p := NewParams()
	p.SetFilter("status", "active")
	p.SetFilter("category", "")    // inactive
	p.SetFilter("level", "all")    // inactive
	p.SetSort("title", true)
	p.SetSearch("go")
	p.SetPage(2)

	want := url.Values{
		ParamPage:      {"2"},
		ParamLimit:     {"10"},
		ParamSortBy:    {"title"},
		ParamSortOrder: {SortAsc},
		ParamSearch:    {"go"},
		"status":       {"active"},
	}
	assert.Equal(t, want, p.Values())
}

func TestParams_Values_omitsDefaults(t *testing.T) {
	p := NewParams()
	v := p.Values()
	if _, ok := v[ParamSortBy]; ok {
		t.Error("sortBy should be omitted when no sort field is set")
	}
	if _, ok := v[ParamSearch]; ok {
		t.Error("search should be omitted when empty")
	}
	assert.Equal(t, []string{"1"}, v[ParamPage])
	assert.Equal(t, []string{"10"}, v[ParamLimit])
}

func TestNumPages(t *testing.T) {
	tests := []struct {
		totalCount, pageSize, want int
	}{
		{0, 20, 1},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{45, 20, 3},
		{100, 10, 10},
		{5, 0, 1}, // degenerate page size
	}
	for _, tt := range tests {
		if got := NumPages(tt.totalCount, tt.pageSize); got != tt.want {
			t.Errorf("NumPages(%d, %d) = %d; want %d", tt.totalCount, tt.pageSize, got, tt.want)
		}
	}
}

func TestClampPage(t *testing.T) {
	tests := []struct {
		page, totalPages, want int
	}{
		{5, 3, 3},
		{3, 3, 3},
		{1, 3, 1},
		{0, 3, 1},
		{-2, 3, 1},
		{2, 0, 1}, // empty result set still displays page 1
	}
	for _, tt := range tests {
		if got := ClampPage(tt.page, tt.totalPages); got != tt.want {
			t.Errorf("ClampPage(%d, %d) = %d; want %d", tt.page, tt.totalPages, got, tt.want)
		}
	}
}

func TestNewPage(t *testing.T) {
	p := NewParams()
	p.SetPageSize(20)
	p.SetPage(5) // will be clamped: 45 items -> 3 pages

	page := NewPage([]string{"a", "b"}, 45, p)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 3, page.CurrentPage)
	assert.Equal(t, 45, page.TotalCount)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrev)
}

func TestPageOf(t *testing.T) {
	all := []int{1, 2, 3, 4, 5, 6, 7}
	p := NewParams()
	p.SetPageSize(3)

	p.SetPage(1)
	page := PageOf(all, p)
	assert.Equal(t, []int{1, 2, 3}, page.Items)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrev)

	p.SetPage(3)
	page = PageOf(all, p)
	assert.Equal(t, []int{7}, page.Items)
	assert.Equal(t, 3, page.TotalPages)
	assert.False(t, page.HasNext)

	p.SetPage(9) // out of range: clamp to last page
	page = PageOf(all, p)
	assert.Equal(t, 3, page.CurrentPage)
	assert.Equal(t, []int{7}, page.Items)

	page = PageOf([]int{}, p)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Empty(t, page.Items)
}
