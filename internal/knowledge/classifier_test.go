package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		question string
		contains []string
		exact    []string
	}{
		{name: "policy", question: "What's your cancellation policy?", contains: []string{"policy"}},
		{name: "special events", question: "Do you offer wedding hair services?", contains: []string{"special-events", "haircut"}},
		{name: "pricing by symbol", question: "Is it more than $50?", contains: []string{"pricing"}},
		{name: "hours and booking", question: "What time can I book an appointment?", exact: []string{"hours", "booking"}},
		{name: "no rule", question: "Do you sell gift cards?", exact: []string{"general"}},
		{name: "empty", question: "", exact: []string{"general"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.question)
			for _, tag := range tt.contains {
				assert.Contains(t, got, tag)
			}
			if tt.exact != nil {
				assert.Equal(t, tt.exact, got)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	q := "How much is a facial and pedicure for my wedding?"
	first := Classify(q)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Classify(q))
	}
	assert.Equal(t, []string{"pedicure", "facial", "special-events"}, first)
}
