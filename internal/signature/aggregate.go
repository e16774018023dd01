// Package signature resolves a manuscript's discipline profile from the
// fields and subfields of its most similar works.
package signature

import (
	"sort"

	"github.com/ppiankov/venuescope/internal/model"
)

type subfieldKey struct {
	field    string
	subfield string
}

type vote struct {
	weight float64
	works  int
	topics map[string]float64
}

// Aggregate folds similar-work signals into a topic signature.
// Votes are summed per (field, subfield); the heaviest subfield wins. Equal
// weights prefer the field with more works overall, then alphabetical order.
// Returns model.ErrNoSignal when there is nothing to vote with.
func Aggregate(works []model.WorkSignal, maxTopics int) (*model.TopicSignature, error) {
	votes := make(map[subfieldKey]*vote)
	fieldWorks := make(map[string]int)
	var total float64

	for _, w := range works {
		if w.Subfield == "" || w.Weight <= 0 {
			continue
		}

		count := w.WorksCount
		if count <= 0 {
			count = 1
		}

		key := subfieldKey{field: w.Field, subfield: w.Subfield}
		v, ok := votes[key]
		if !ok {
			v = &vote{topics: make(map[string]float64)}
			votes[key] = v
		}
		v.weight += w.Weight
		v.works += count
		if w.Topic != "" {
			v.topics[w.Topic] += w.Weight
		}

		fieldWorks[w.Field] += count
		total += w.Weight
	}

	if len(votes) == 0 || total <= 0 {
		return nil, model.ErrNoSignal
	}

	keys := make([]subfieldKey, 0, len(votes))
	for k := range votes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if votes[a].weight != votes[b].weight {
			return votes[a].weight > votes[b].weight
		}
		if fieldWorks[a.field] != fieldWorks[b.field] {
			return fieldWorks[a.field] > fieldWorks[b.field]
		}
		if a.field != b.field {
			return a.field < b.field
		}
		return a.subfield < b.subfield
	})

	winner := keys[0]
	confidence := votes[winner].weight / total
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}

	return &model.TopicSignature{
		Discipline: winner.subfield,
		Field:      winner.field,
		Confidence: confidence,
		Topics:     rankTopics(votes[winner].topics, maxTopics),
	}, nil
}

// rankTopics orders labels by summed weight, then label, capped at max
func rankTopics(topics map[string]float64, max int) []string {
	labels := make([]string, 0, len(topics))
	for label := range topics {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if topics[labels[i]] != topics[labels[j]] {
			return topics[labels[i]] > topics[labels[j]]
		}
		return labels[i] < labels[j]
	})
	if max > 0 && len(labels) > max {
		labels = labels[:max]
	}
	return labels
}
