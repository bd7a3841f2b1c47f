// Package state holds the host-side cursor bookkeeping shared by the tree
// viewport and the action picker.
package state

// Cursor tracks a cursor over Total rows and the first row shown in a
// window of rows.
type Cursor struct {
	Line   int
	Offset int
	Total  int
}

// SetTotal updates the row count and clamps the cursor into it.
func (c *Cursor) SetTotal(n int) {
	if n < 0 {
		n = 0
	}
	c.Total = n
	c.clamp()
}

func (c *Cursor) clamp() {
	if c.Total == 0 {
		c.Line = 0
		return
	}
	if c.Line < 0 {
		c.Line = 0
	}
	if c.Line >= c.Total {
		c.Line = c.Total - 1
	}
}

// Home moves the cursor to the first row.
func (c *Cursor) Home() bool {
	if c.Total == 0 {
		c.Line = 0
		return false
	}
	old := c.Line
	c.Line = 0
	return old != c.Line
}

// End moves the cursor to the last row.
func (c *Cursor) End() bool {
	if c.Total == 0 {
		c.Line = 0
		return false
	}
	old := c.Line
	c.Line = c.Total - 1
	return old != c.Line
}

// PageUp moves the cursor up by the given page size.
func (c *Cursor) PageUp(maxVisible int) bool {
	return c.MoveBy(-c.pageSize(maxVisible))
}

// PageDown moves the cursor down by the given page size.
func (c *Cursor) PageDown(maxVisible int) bool {
	return c.MoveBy(c.pageSize(maxVisible))
}

// MoveBy moves the cursor delta rows, stopping at either end.
func (c *Cursor) MoveBy(delta int) bool {
	if c.Total == 0 {
		c.Line = 0
		return false
	}
	old := c.Line
	c.Line += delta
	c.clamp()
	return c.Line != old
}

func (c *Cursor) pageSize(maxVisible int) int {
	if c.Total == 0 {
		return 0
	}
	size := maxVisible
	if size <= 0 || size > c.Total {
		size = c.Total
	}
	if size < 1 {
		size = 1
	}
	return size
}

// EnsureVisible adjusts Offset so the cursor stays inside a window of
// maxVisible rows.
func (c *Cursor) EnsureVisible(maxVisible int) {
	if c.Total == 0 {
		c.Line = 0
		c.Offset = 0
		return
	}
	c.clamp()
	if maxVisible <= 0 {
		c.Offset = 0
		return
	}
	maxOffset := c.Total - maxVisible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if c.Offset > maxOffset {
		c.Offset = maxOffset
	}
	if c.Offset < 0 {
		c.Offset = 0
	}
	if c.Line < c.Offset {
		c.Offset = c.Line
	}
	upper := c.Offset + maxVisible - 1
	if c.Line > upper {
		c.Offset = c.Line - maxVisible + 1
		if c.Offset < 0 {
			c.Offset = 0
		}
		if c.Offset > maxOffset {
			c.Offset = maxOffset
		}
	}
}
