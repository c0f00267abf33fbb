package query

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fentz26/taskboard/internal/models"
)

func sample() []models.Task {
	return []models.Task{
		{ID: "1", Content: "Fix login redirect", Category: models.CategoryBugFixing,
			Project: "Apollo", Tags: []string{"auth"}, TaskDate: "2026-10-16", Status: models.TaskStatusPending},
		{ID: "2", Content: "Write release notes", Description: "Covers the OAuth change",
			Category: models.CategoryDocumentation, TaskDate: "2026-10-15", Status: models.TaskStatusCompleted},
		{ID: "3", Content: "Standup", Category: models.CategoryMeetings,
			Project: "Hermes", TaskDate: "2026-10-16", Status: models.TaskStatusPending},
		{ID: "4", Content: "Deploy", Category: models.CategoryUnspecified, TaskDate: "2026-10-14",
			Status: models.TaskStatusPending},
	}
}

func ids(ts []models.Task) []string {
	out := []string{}
	for _, t := range ts {
		out = append(out, t.ID)
	}
	return out
}

func TestFilter_DefaultCriteriaReturnsEverything(t *testing.T) {
	tasks := sample()
	assert.Equal(t, ids(tasks), ids(Filter(tasks, DefaultCriteria())))
	assert.Equal(t, ids(tasks), ids(Filter(tasks, Criteria{})))
	assert.True(t, DefaultCriteria().IsDefault())
	assert.True(t, Criteria{}.IsDefault())
	assert.False(t, Criteria{SearchTerm: "x"}.IsDefault())
}

func TestFilter_SearchIsCaseInsensitiveAcrossFields(t *testing.T) {
	tasks := sample()
	cases := map[string][]string{
		"LOGIN":  {"1"},
		"oauth":  {"2"},
		"hermes": {"3"},
		"AUTH":   {"1", "2"}, // tag on 1, description "OAuth" on 2
		"nope":   {},
		"  ":     {"1", "2", "3", "4"},
	}
	for term, want := range cases {
		got := Filter(tasks, Criteria{SearchTerm: term, Category: All, Status: All})
		assert.Equal(t, want, ids(got), term)
	}
}

func TestFilter_PredicatesAreANDed(t *testing.T) {
	tasks := sample()
	got := Filter(tasks, Criteria{Status: "pending", Date: "2026-10-16"})
	assert.Equal(t, []string{"1", "3"}, ids(got))

	got = Filter(tasks, Criteria{Status: "pending", Date: "2026-10-16", Category: "meetings"})
	assert.Equal(t, []string{"3"}, ids(got))

	got = Filter(tasks, Criteria{Category: "unspecified"})
	assert.Equal(t, []string{"4"}, ids(got))

	got = Filter(tasks, Criteria{Status: "completed", SearchTerm: "standup"})
	assert.Empty(t, got)
}

func TestFilter_ToleratesMissingOptionalFields(t *testing.T) {
	bare := []models.Task{{ID: "x", Content: "bare"}}
	assert.Empty(t, Filter(bare, Criteria{SearchTerm: "project"}))
	assert.Len(t, Filter(bare, Criteria{SearchTerm: "BA"}), 1)
	assert.Empty(t, Filter(nil, DefaultCriteria()))
}

func TestProjects(t *testing.T) {
	tasks := append(sample(), models.Task{ID: "5", Project: "Apollo"}, models.Task{ID: "6", Project: "  "})
	assert.Equal(t, []string{"Apollo", "Hermes"}, Projects(tasks))
	assert.Equal(t, []string{"Hermes"}, SuggestProjects(tasks, "he"))
	assert.Nil(t, Projects(nil))
}
