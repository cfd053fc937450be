package mdb

// Fuzz is a go-fuzz entry point exercising the full open-and-decode path
// against arbitrary byte input.
func Fuzz(data []byte) int {
	db, err := OpenBytes(data, nil)
	if err != nil {
		return 0
	}
	for _, name := range db.Tables() {
		if _, err := db.ParseTable(name); err != nil {
			return 0
		}
	}
	return 1
}
