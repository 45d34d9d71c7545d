// Package set implements the Set container (spec §3, §4.2), generalizing
// the teacher's datastruct/set/set.go (Add/Exist/Rem over map[string]struct{})
// with Members/Card/RandomSample/PopRandom/Inter/Union/Diff per the spec.
package set

import "math/rand"

// Set is an unordered collection of unique string members.
type Set interface {
	Add(members ...string) int64 // count of newly added members
	Rem(members ...string) int64
	Contains(member string) bool
	Members() []string
	Card() int64
	RandomSample(n int) []string
	PopRandom(n int) []string
	Inter(other Set) []string
	Union(other Set) []string
	Diff(other Set) []string
	ToCmd(key string) [][]byte
}

type setEntity struct {
	data map[string]struct{}
}

func New() Set {
	return &setEntity{data: make(map[string]struct{})}
}

func (s *setEntity) Add(members ...string) int64 {
	var added int64
	for _, m := range members {
		if _, ok := s.data[m]; !ok {
			s.data[m] = struct{}{}
			added++
		}
	}
	return added
}

func (s *setEntity) Rem(members ...string) int64 {
	var removed int64
	for _, m := range members {
		if _, ok := s.data[m]; ok {
			delete(s.data, m)
			removed++
		}
	}
	return removed
}

func (s *setEntity) Contains(member string) bool {
	_, ok := s.data[member]
	return ok
}

func (s *setEntity) Members() []string {
	members := make([]string, 0, len(s.data))
	for m := range s.data {
		members = append(members, m)
	}
	return members
}

func (s *setEntity) Card() int64 { return int64(len(s.data)) }

// RandomSample returns up to n distinct members without removing them. A
// negative n (Redis's SRANDMEMBER convention) allows repeats up to |n|.
func (s *setEntity) RandomSample(n int) []string {
	all := s.Members()
	if len(all) == 0 {
		return nil
	}
	if n < 0 {
		count := -n
		result := make([]string, count)
		for i := 0; i < count; i++ {
			result[i] = all[rand.Intn(len(all))]
		}
		return result
	}
	if n > len(all) {
		n = len(all)
	}
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all[:n]
}

func (s *setEntity) PopRandom(n int) []string {
	sample := s.RandomSample(n)
	if n < 0 {
		return sample
	}
	for _, m := range sample {
		delete(s.data, m)
	}
	return sample
}

func (s *setEntity) Inter(other Set) []string {
	var result []string
	otherSet, _ := other.(*setEntity)
	for m := range s.data {
		if otherSet != nil {
			if _, ok := otherSet.data[m]; ok {
				result = append(result, m)
			}
		} else if other.Contains(m) {
			result = append(result, m)
		}
	}
	return result
}

func (s *setEntity) Union(other Set) []string {
	seen := make(map[string]struct{}, len(s.data))
	var result []string
	for m := range s.data {
		seen[m] = struct{}{}
		result = append(result, m)
	}
	for _, m := range other.Members() {
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			result = append(result, m)
		}
	}
	return result
}

func (s *setEntity) Diff(other Set) []string {
	var result []string
	for m := range s.data {
		if !other.Contains(m) {
			result = append(result, m)
		}
	}
	return result
}

// ToCmd reconstructs an SADD that recreates this set, used by AOF rewrite.
func (s *setEntity) ToCmd(key string) [][]byte {
	args := make([][]byte, 0, 2+len(s.data))
	args = append(args, []byte("SADD"), []byte(key))
	for m := range s.data {
		args = append(args, []byte(m))
	}
	return args
}
