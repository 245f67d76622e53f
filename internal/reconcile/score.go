package reconcile

import (
	"sort"
	"strings"

	"github.com/Leganyst/association-portal/internal/model"
)

// Веса оценки кандидата.
const (
	DescriptionWeight = 100
	ValidatedWeight   = 50
)

// Candidate: клуб-дубликат с данными для оценки.
type Candidate struct {
	ClubID         uint64
	HasDescription bool
	Validated      bool
	Members        int64
}

// FromClub собирает кандидата из строки клуба и числа его участников.
func FromClub(c model.Club, members int64) Candidate {
	return Candidate{
		ClubID:         c.ID,
		HasDescription: strings.TrimSpace(c.Description) != "",
		Validated:      c.ValidationStatus == model.StatusValidated,
		Members:        members,
	}
}

// Scored: кандидат с посчитанной оценкой.
type Scored struct {
	Candidate
	Score int64
}

// Score: 100 за непустое описание, 50 за validated, +1 за каждого участника.
func Score(c Candidate) int64 {
	var s int64
	if c.HasDescription {
		s += DescriptionWeight
	}
	if c.Validated {
		s += ValidatedWeight
	}
	return s + c.Members
}

// ScoreAll оценивает кандидатов и упорядочивает их по id.
func ScoreAll(cands []Candidate) []Scored {
	out := make([]Scored, 0, len(cands))
	for _, c := range cands {
		out = append(out, Scored{Candidate: c, Score: Score(c)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ClubID < out[j].ClubID
	})
	return out
}

// Elect выбирает победителя: строго максимальная оценка, при равенстве
// первый по возрастанию id. Остальные возвращаются проигравшими в порядке id.
// ok == false, если кандидатов меньше двух.
func Elect(scored []Scored) (winner Scored, losers []Scored, ok bool) {
	if len(scored) < 2 {
		return Scored{}, nil, false
	}

	ordered := make([]Scored, len(scored))
	copy(ordered, scored)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ClubID < ordered[j].ClubID
	})

	best := 0
	for i := 1; i < len(ordered); i++ {
		if ordered[i].Score > ordered[best].Score {
			best = i
		}
	}

	losers = make([]Scored, 0, len(ordered)-1)
	for i, s := range ordered {
		if i != best {
			losers = append(losers, s)
		}
	}
	return ordered[best], losers, true
}
