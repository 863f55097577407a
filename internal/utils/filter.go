package utils

// IsSeparator checks if a rune is a word-boundary separator character.
func IsSeparator(r rune) bool {
	return r == ' ' || r == '_' || r == '-' || r == '.' || r == '/'
}
