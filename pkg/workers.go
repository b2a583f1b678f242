package advlab

import (
	"fmt"
	"sync"
)

type vertexResult struct {
	Index    int
	Estimate VertexEstimate
	Err      error
}

type vertexTask struct {
	Geometry       Geometry
	Settings       EstimatorSettings
	ExpansionPoint ExpansionPoint
}

func (t vertexTask) evaluate(id int, c Combination) (result vertexResult) {
	result.Index = c.Index
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("worker %d recovered from panic in combination %d: %v", id, c.Index, r)
		}
	}()

	states := BuildStates(c, t.Geometry, t.Settings)
	estimate, err := ComputeVertex(states, t.ExpansionPoint, t.Settings)
	if err != nil {
		result.Err = fmt.Errorf("combination %d: %w", c.Index, err)
		return result
	}
	estimate.Combination = c.Index
	result.Estimate = estimate
	return result
}

func worker(id int, task vertexTask, jobs <-chan Combination, results chan<- vertexResult) {
	for c := range jobs {
		if configuration.Verbosity > 2 {
			logger.Info(fmt.Sprintf("Worker %d processing combination %d", id, c.Index), "workers")
		}
		results <- task.evaluate(id, c)
	}
}

// evaluateCombinations runs ComputeVertex for every combination on nWorkers
// goroutines. Results are returned in combination order.
func evaluateCombinations(combinations []Combination, task vertexTask, nWorkers int) []vertexResult {
	if nWorkers < 1 {
		nWorkers = 1
	}
	jobs := make(chan Combination, len(combinations))
	results := make(chan vertexResult, len(combinations))

	var wg sync.WaitGroup
	for w := 1; w <= nWorkers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			worker(id, task, jobs, results)
		}(w)
	}

	for _, c := range combinations {
		jobs <- c
	}
	close(jobs)
	wg.Wait()
	close(results)

	ordered := make([]vertexResult, len(combinations))
	position := make(map[int]int, len(combinations))
	for i, c := range combinations {
		position[c.Index] = i
	}
	for r := range results {
		ordered[position[r.Index]] = r
	}
	return ordered
}
