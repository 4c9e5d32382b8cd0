// Package ocr reads license plate text from thresholded plate crops
package ocr

import (
	"strings"
)

// ukPlateLen is the number of characters of a current UK registration
const ukPlateLen = 7

// charToInt maps letters commonly misread for digits
var charToInt = map[byte]byte{
	'O': '0',
	'I': '1',
	'J': '3',
	'A': '4',
	'G': '6',
	'S': '5',
}

// intToChar maps digits commonly misread for letters
var intToChar = map[byte]byte{
	'0': 'O',
	'1': 'I',
	'3': 'J',
	'4': 'A',
	'6': 'G',
	'5': 'S',
}

// ukLetterPos marks the positions of a UK plate (AA99AAA) holding letters
var ukLetterPos = [ukPlateLen]bool{true, true, false, false, true, true, true}

// Normalize upper cases the text and strips spaces and separators
func Normalize(text string) string {

	var b strings.Builder

	for _, r := range strings.ToUpper(text) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}

	return b.String()
}

// UKFormat checks the text is a UK registration of the form AA99AAA once
// common misreads are allowed for, and returns it with the misreads
// corrected. The bool result is false when the text does not comply
func UKFormat(text string) (string, bool) {

	text = Normalize(text)

	if len(text) != ukPlateLen {
		return "", false
	}

	out := []byte(text)

	for i := 0; i < ukPlateLen; i++ {
		c := text[i]

		if ukLetterPos[i] {
			if isLetter(c) {
				continue
			}
			if m, ok := intToChar[c]; ok {
				out[i] = m
				continue
			}
			return "", false
		}

		if isDigit(c) {
			continue
		}
		if m, ok := charToInt[c]; ok {
			out[i] = m
			continue
		}
		return "", false
	}

	return string(out), true
}

func isLetter(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Formatter validates and corrects raw OCR text, returning false to reject
// the reading
type Formatter func(text string) (string, bool)

// AnyFormat accepts any text holding at least one character once normalized
func AnyFormat(text string) (string, bool) {
	text = Normalize(text)
	return text, text != ""
}
