package models

// FormatDisplayDate converts a storage-form date "2024-03-07" to the
// display form "07.03.2024". It is total: anything that is not a
// zero-padded YYYY-MM-DD string is returned unchanged.
func FormatDisplayDate(s string) string {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return s
	}
	for i, c := range s {
		if i == 4 || i == 7 {
			continue
		}
		if c < '0' || c > '9' {
			return s
		}
	}
	return s[8:10] + "." + s[5:7] + "." + s[0:4]
}
