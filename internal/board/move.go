package board

// Move is a single piece displacement. Promotion is always to a queen.
type Move struct {
	From      Square
	To        Square
	Capture   bool
	Promotion Kind
}

// UCI renders the move in long algebraic form, e.g. "e2e4" or "a7a8q".
func (m Move) UCI() string {
	s := m.From.Algebraic() + m.To.Algebraic()
	if m.Promotion == Queen {
		s += "q"
	}
	return s
}

func (m Move) String() string { return m.UCI() }
