package crawler

import "sync"

type nextState int

const (
	nextURL   nextState = iota // A URL was handed out and marked visited
	nextWait                   // Queue empty but fetches in flight may add more
	nextDone                   // Queue exhausted and nothing in flight
	nextLimit                  // MaxIterations reached
)

// Frontier owns the worklist and the visited set. A URL enters the queue at
// most once and is marked visited immediately before it is handed out, so no
// URL is ever fetched twice.
type Frontier struct {
	mu       sync.Mutex
	queue    []string
	known    map[string]struct{} // queued or visited
	visited  map[string]struct{}
	inFlight int
	max      int
}

// NewFrontier creates a frontier bounded to max visits (0=unlimited)
func NewFrontier(max int) *Frontier {
	return &Frontier{
		known:   make(map[string]struct{}),
		visited: make(map[string]struct{}),
		max:     max,
	}
}

// Push queues the URLs not seen before, in order, and returns them
func (f *Frontier) Push(urls []string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var added []string
	for _, u := range urls {
		if _, ok := f.known[u]; ok {
			continue
		}
		f.known[u] = struct{}{}
		f.queue = append(f.queue, u)
		added = append(added, u)
	}
	return added
}

// Preload marks URLs as visited in an earlier run. They count toward the
// bound and are never queued again.
func (f *Frontier) Preload(urls []string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, u := range urls {
		f.known[u] = struct{}{}
		f.visited[u] = struct{}{}
	}
}

// Next hands out the head of the queue, marking it visited and in flight.
// Callers must call Release once they have pushed the page's links.
func (f *Frontier) Next() (string, nextState) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.max > 0 && len(f.visited) >= f.max {
		return "", nextLimit
	}
	if len(f.queue) == 0 {
		if f.inFlight > 0 {
			return "", nextWait
		}
		return "", nextDone
	}

	u := f.queue[0]
	f.queue[0] = ""
	f.queue = f.queue[1:]
	f.visited[u] = struct{}{}
	f.inFlight++
	return u, nextURL
}

// Release marks one handed-out URL as finished
func (f *Frontier) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
}

// Visited reports whether u has been handed out or preloaded
func (f *Frontier) Visited(u string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.visited[u]
	return ok
}

// Len returns the queued and visited counts
func (f *Frontier) Len() (queued, visited int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue), len(f.visited)
}
