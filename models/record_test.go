package models

import "testing"

func TestSortByID(t *testing.T) {
	records := []*Record{
		{ID: 42, Title: "Dune"},
		{ID: 7, Title: "La Horde du Contrevent"},
		{ID: 19, Title: "Hypérion"},
	}

	SortByID(records)

	for i, want := range []int64{7, 19, 42} {
		if records[i].ID != want {
			t.Fatalf("records[%d].ID=%d, want %d", i, records[i].ID, want)
		}
	}
}

func TestRunFailures(t *testing.T) {
	run := &Run{
		Failed: []FailedRef{
			{ID: 1, URL: "/livre/a/1", Reason: "timeout"},
			{ID: 2, URL: "/livre/b/2", Reason: "http status 500"},
		},
	}
	if got := run.Failures(); got != 2 {
		t.Fatalf("failures=%d, want 2", got)
	}
}
