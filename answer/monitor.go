package answer

import "github.com/poiesic/corpusqa/core"

// Monitor provides hooks to observe the answering process.
// Implement this interface to track intermediate stages during a run.
type Monitor interface {
	Start(question string)
	AfterEmbedding(dimensions int)
	AfterRetrieval(hits []*core.SearchHit)
	AfterSelection(docURI string, votes int, bestDist float64)
	Abstained(reason string)
	AfterGeneration(answer string)
	Finish(result *Answer)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                            {}
func (n *noopMonitor) AfterEmbedding(_ int)                      {}
func (n *noopMonitor) AfterRetrieval(_ []*core.SearchHit)        {}
func (n *noopMonitor) AfterSelection(_ string, _ int, _ float64) {}
func (n *noopMonitor) Abstained(_ string)                        {}
func (n *noopMonitor) AfterGeneration(_ string)                  {}
func (n *noopMonitor) Finish(_ *Answer)                          {}
