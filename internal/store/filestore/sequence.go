package filestore

import (
	"strconv"
)

type sequence struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// next hands out the next value of the named sequence. floor is the highest id
// already present in the owning collection, so ids stay ahead of seeded data.
func (s *Store) next(name string, floor int) (int, error) {
	var value int
	err := s.sequences.update(func(records []sequence) ([]sequence, error) {
		for i := range records {
			if records[i].Name != name {
				continue
			}
			records[i].Value = max(records[i].Value, floor) + 1
			value = records[i].Value
			return records, nil
		}
		value = floor + 1
		return append(records, sequence{Name: name, Value: value}), nil
	})
	return value, err
}

func maxNumericID(ids []string) int {
	highest := 0
	for _, id := range ids {
		n, err := strconv.Atoi(id)
		if err == nil && n > highest {
			highest = n
		}
	}
	return highest
}
