package input

// CodeMatcher follows an ordered key code one key at a time.
//
// On a mismatch it does not simply drop back to zero: it falls back to the
// longest prefix of the code that is also a suffix of the keys seen so far,
// and retries the mismatching key there. "up up up down down ..." therefore
// still matches a code starting "up up down down".
type CodeMatcher struct {
	target []Key
	fail   []int
	index  int
}

func NewCodeMatcher(target []Key) *CodeMatcher {
	t := append([]Key(nil), target...)
	return &CodeMatcher{target: t, fail: failureTable(t)}
}

// failureTable[i] is the length of the longest proper prefix of target[:i+1]
// that is also its suffix.
func failureTable(target []Key) []int {
	fail := make([]int, len(target))
	k := 0
	for i := 1; i < len(target); i++ {
		for k > 0 && target[i] != target[k] {
			k = fail[k-1]
		}
		if target[i] == target[k] {
			k++
		}
		fail[i] = k
	}
	return fail
}

// Feed advances the matcher and reports whether the code just completed.
// Completion resets the matcher before returning.
func (m *CodeMatcher) Feed(k Key) bool {
	if len(m.target) == 0 {
		return false
	}
	for m.index > 0 && m.target[m.index] != k {
		m.index = m.fail[m.index-1]
	}
	if m.target[m.index] == k {
		m.index++
	}
	if m.index == len(m.target) {
		m.index = 0
		return true
	}
	return false
}

func (m *CodeMatcher) Index() int { return m.index }

func (m *CodeMatcher) Reset() { m.index = 0 }
