package api

import (
	"sync"

	"github.com/google/uuid"
)

// ReportStore keeps comparison reports in memory. Echo handlers run
// concurrently, so every access takes the mutex.
type ReportStore struct {
	mu      sync.Mutex
	reports map[string]CompareReport
	order   []string
}

func NewReportStore() *ReportStore {
	return &ReportStore{
		reports: make(map[string]CompareReport),
	}
}

// Save assigns the report a fresh id, stores it, and returns the stored copy.
func (s *ReportStore) Save(report CompareReport) CompareReport {
	report.ID = newReportID()
	report.Object = "compare.report"

	s.mu.Lock()
	s.reports[report.ID] = report
	s.order = append(s.order, report.ID)
	s.mu.Unlock()

	return report
}

func (s *ReportStore) Get(id string) (CompareReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[id]
	return report, ok
}

// List returns reports in insertion order.
func (s *ReportStore) List() []CompareReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CompareReport, 0, len(s.order))
	for _, id := range s.order {
		if report, ok := s.reports[id]; ok {
			out = append(out, report)
		}
	}
	return out
}

func (s *ReportStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return false
	}
	delete(s.reports, id)
	for i, got := range s.order {
		if got == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func newReportID() string {
	return "cmp_" + uuid.NewString()
}
