package engine

// NoteStack tracks held keys for mono mode, most recent on top. It is a
// fixed array, so pushes never allocate and a key appears at most once.
type NoteStack struct {
	notes [128]uint8
	n     int
}

// Push moves note to the top, removing any earlier entry for it.
func (s *NoteStack) Push(note uint8) {
	note &= 0x7f
	s.Remove(note)
	s.notes[s.n] = note
	s.n++
}

// Remove deletes note and reports whether it was held.
func (s *NoteStack) Remove(note uint8) bool {
	for i := 0; i < s.n; i++ {
		if s.notes[i] == note {
			copy(s.notes[i:s.n-1], s.notes[i+1:s.n])
			s.n--
			return true
		}
	}
	return false
}

// Top returns the most recently pushed note still held.
func (s *NoteStack) Top() (uint8, bool) {
	if s.n == 0 {
		return 0, false
	}
	return s.notes[s.n-1], true
}

func (s *NoteStack) Len() int { return s.n }

func (s *NoteStack) Clear() { s.n = 0 }
