package discovery

import "fmt"

// Outcome classifies a single fetch or probe attempt.
type Outcome int

const (
	// OutcomeHit means the candidate produced a usable result.
	OutcomeHit Outcome = iota
	// OutcomeSkip means the candidate failed recoverably; try the next one.
	OutcomeSkip
	// OutcomeTerminal means the pipeline must stop.
	OutcomeTerminal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeHit:
		return "hit"
	case OutcomeSkip:
		return "skip"
	case OutcomeTerminal:
		return "terminal"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Attempt records what happened for one candidate URL.
type Attempt struct {
	URL        string
	Method     string
	Outcome    Outcome
	StatusCode int
	// Err explains a skip or terminal outcome.
	Err error
}

func hit(url, method string, status int) Attempt {
	return Attempt{URL: url, Method: method, Outcome: OutcomeHit, StatusCode: status}
}

func skip(url, method string, status int, err error) Attempt {
	return Attempt{URL: url, Method: method, Outcome: OutcomeSkip, StatusCode: status, Err: err}
}

func terminal(url, method string, err error) Attempt {
	return Attempt{URL: url, Method: method, Outcome: OutcomeTerminal, Err: err}
}
