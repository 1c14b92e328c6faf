package document

// Index maps shape ids to their position in one frame's shape list.
// Shapes without an id are not indexed. When an id repeats, the first
// occurrence is kept and later positions are listed in Duplicates.
type Index struct {
	byID       map[string]int
	Duplicates []int
}

func NewIndex(shapes []Shape) *Index {
	ix := &Index{byID: make(map[string]int, len(shapes))}
	for i, s := range shapes {
		if s.ID == "" {
			continue
		}
		if _, exists := ix.byID[s.ID]; exists {
			ix.Duplicates = append(ix.Duplicates, i)
			continue
		}
		ix.byID[s.ID] = i
	}
	return ix
}

// Lookup returns the position of the shape with the given id.
func (ix *Index) Lookup(id string) (int, bool) {
	if id == "" {
		return 0, false
	}
	i, ok := ix.byID[id]
	return i, ok
}

func (ix *Index) Len() int { return len(ix.byID) }
