package corpus

// SymbolCompare orders fully qualified names case-insensitively. Names
// that differ only in case are ordered by the first position where the
// case differs, uppercase first. A name sorts before any longer name it is
// a case-insensitive prefix of.
//
// Only ASCII letters are folded; other bytes compare as is.
func SymbolCompare(a, b string) int {
	n := min(len(a), len(b))
	tie := 0
	for i := 0; i < n; i++ {
		ca, cb := a[i], b[i]
		la, lb := toLower(ca), toLower(cb)
		if la != lb {
			if la < lb {
				return -1
			}
			return 1
		}
		if tie == 0 && ca != cb {
			// 'A' < 'a' in ASCII
			if ca < cb {
				tie = -1
			} else {
				tie = 1
			}
		}
	}

	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return tie
}

// SymbolLess reports whether a sorts before b under SymbolCompare
func SymbolLess(a, b string) bool {
	return SymbolCompare(a, b) < 0
}

func toLower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
