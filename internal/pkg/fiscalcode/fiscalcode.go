package fiscalcode

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Engine errors. ErrForeignBirthplace marks a structurally valid code whose
// birthplace is a foreign-country cadastral code (Z-prefixed), which some
// callers treat differently from a malformed code.
var (
	ErrMalformed         = errors.New("fiscal code is malformed")
	ErrForeignBirthplace = errors.New("fiscal code has a foreign birthplace")
)

// Gender as encoded in the day-of-birth field
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// BirthDate is the date encoded in a fiscal code
type BirthDate struct {
	Year  int
	Month time.Month
	Day   int
}

// Positional grammar: 6 letters, 2 digits (or omocodia letters), 1 month
// letter, 2 digits, 1 letter, 3 digits, 1 check letter
var formatRegexp = regexp.MustCompile(`^[A-Z]{6}[0-9LMNPQRSTUV]{2}[ABCDEHLMPRST][0-9LMNPQRSTUV]{2}[A-Z][0-9LMNPQRSTUV]{3}[A-Z]$`)

// Omocodia substitution alphabet (letter back to digit)
var omocodiaReverse = map[byte]byte{
	'L': '0', 'M': '1', 'N': '2', 'P': '3', 'Q': '4',
	'R': '5', 'S': '6', 'T': '7', 'U': '8', 'V': '9',
}

// Digit positions subject to omocodia substitution (0-indexed)
var omocodiaPositions = []int{6, 7, 9, 10, 12, 13, 14}

// Month letters as defined by the Codice Fiscale standard
var monthLetters = map[byte]time.Month{
	'A': time.January, 'B': time.February, 'C': time.March,
	'D': time.April, 'E': time.May, 'H': time.June,
	'L': time.July, 'M': time.August, 'P': time.September,
	'R': time.October, 'S': time.November, 'T': time.December,
}

// Checksum substitution table for characters in odd (1-indexed) positions.
// Even positions use the plain alphabetic/numeric ordinal.
var oddChecksumValues = map[byte]int{
	'0': 1, '1': 0, '2': 5, '3': 7, '4': 9, '5': 13, '6': 15, '7': 17, '8': 19, '9': 21,
	'A': 1, 'B': 0, 'C': 5, 'D': 7, 'E': 9, 'F': 13, 'G': 15, 'H': 17, 'I': 19, 'J': 21,
	'K': 2, 'L': 4, 'M': 18, 'N': 20, 'O': 11, 'P': 3, 'Q': 6, 'R': 8, 'S': 12, 'T': 14,
	'U': 16, 'V': 10, 'W': 22, 'X': 25, 'Y': 24, 'Z': 23,
}

// ValidateFormat reports whether code matches the 16-character positional
// grammar. It accepts omocodia letters in the digit positions.
func ValidateFormat(code string) bool {
	return formatRegexp.MatchString(strings.ToUpper(code))
}

// NormalizeOmocodia maps omocodia substitution letters back to digits at the
// seven positions where the scheme applies. Applying it twice is a no-op.
// Returns ErrMalformed if code does not match the grammar.
func NormalizeOmocodia(code string) (string, error) {
	code = strings.ToUpper(code)
	if !ValidateFormat(code) {
		return "", ErrMalformed
	}
	b := []byte(code)
	for _, pos := range omocodiaPositions {
		if d, ok := omocodiaReverse[b[pos]]; ok {
			b[pos] = d
		}
	}
	return string(b), nil
}

// ExtractGender reads the day-of-birth field: values above 40 mark a female
// code (40 was added to the real day at generation time).
func ExtractGender(code string) (Gender, error) {
	norm, err := NormalizeOmocodia(code)
	if err != nil {
		return "", err
	}
	day := int(norm[9]-'0')*10 + int(norm[10]-'0')
	switch {
	case day >= 1 && day <= 40:
		return GenderMale, nil
	case day >= 41 && day <= 71:
		return GenderFemale, nil
	default:
		return "", ErrMalformed
	}
}

// ExtractBirthDate decodes the birth date. The two-digit year is resolved to
// 20xx when it is not greater than the current two-digit year, 19xx
// otherwise; codes of people born more than a century ago are inherently
// ambiguous and resolve to the recent century.
func ExtractBirthDate(code string) (BirthDate, error) {
	norm, err := NormalizeOmocodia(code)
	if err != nil {
		return BirthDate{}, err
	}

	month, ok := monthLetters[norm[8]]
	if !ok {
		return BirthDate{}, ErrMalformed
	}

	day := int(norm[9]-'0')*10 + int(norm[10]-'0')
	if day > 40 {
		day -= 40
	}
	if day < 1 || day > 31 {
		return BirthDate{}, ErrMalformed
	}

	yy := int(norm[6]-'0')*10 + int(norm[7]-'0')
	year := 1900 + yy
	if yy <= time.Now().Year()%100 {
		year = 2000 + yy
	}

	return BirthDate{Year: year, Month: month, Day: day}, nil
}

// ExtractCadastralCode returns the 4-character birthplace code (one letter,
// three digits). Foreign birthplaces (Z-prefixed) return the code together
// with ErrForeignBirthplace so callers can branch on the edge case.
func ExtractCadastralCode(code string) (string, error) {
	norm, err := NormalizeOmocodia(code)
	if err != nil {
		return "", err
	}
	cadastral := norm[11:15]
	if cadastral[0] == 'Z' {
		return cadastral, ErrForeignBirthplace
	}
	return cadastral, nil
}

// ValidateChecksum verifies the 16th character against the checksum of the
// first 15: each character is mapped through the odd or even substitution
// table by its 1-indexed position, summed mod 26.
func ValidateChecksum(code string) bool {
	code = strings.ToUpper(code)
	if !ValidateFormat(code) {
		return false
	}

	sum := 0
	for i := 0; i < 15; i++ {
		c := code[i]
		if (i+1)%2 == 1 {
			sum += oddChecksumValues[c]
		} else {
			if c >= '0' && c <= '9' {
				sum += int(c - '0')
			} else {
				sum += int(c - 'A')
			}
		}
	}

	return byte('A'+sum%26) == code[15]
}

// GenerateSurnameCode builds the 3-letter surname field: consonants first,
// then vowels, padded with X.
func GenerateSurnameCode(surname string) string {
	letters := onlyLetters(surname)
	padded := consonants(letters) + vowels(letters) + "XXX"
	return padded[:3]
}

// GenerateNameCode builds the 3-letter first-name field. Names with four or
// more consonants drop the second one (the standard takes the 1st, 3rd and
// 4th); otherwise the surname rule applies.
func GenerateNameCode(name string) string {
	letters := onlyLetters(name)
	cons := consonants(letters)
	if len(cons) >= 4 {
		return string([]byte{cons[0], cons[2], cons[3]})
	}
	padded := cons + vowels(letters) + "XXX"
	return padded[:3]
}

// NameEntry is one row of the given-name dictionary used by compound-name
// reconciliation.
type NameEntry struct {
	Name   string
	Gender Gender
}

// SuggestCompoundName searches the name dictionary for a second given name
// such that "firstName <candidate>" generates the name code embedded in the
// fiscal code. Candidates are filtered by the gender the code implies. The
// first match is returned capitalized; ok is false when none exists or the
// stored name already matches.
func SuggestCompoundName(code, firstName string, names []NameEntry) (string, bool) {
	norm, err := NormalizeOmocodia(code)
	if err != nil {
		return "", false
	}
	gender, err := ExtractGender(norm)
	if err != nil {
		return "", false
	}

	want := norm[3:6]
	if GenerateNameCode(firstName) == want {
		return "", false
	}

	for _, entry := range names {
		if entry.Gender != gender {
			continue
		}
		if GenerateNameCode(firstName+" "+entry.Name) == want {
			return capitalize(entry.Name), true
		}
	}
	return "", false
}

func onlyLetters(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func consonants(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if !isVowel(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func vowels(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if isVowel(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isVowel(c byte) bool {
	switch c {
	case 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
