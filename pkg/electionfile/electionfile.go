// Package electionfile reads the one input artifact a run or CLI
// invocation needs: the candidate names and the already-tabulated
// observed ballots to seed a Dirichlet tree with. Ingesting a raw ballot
// corpus (deduplicating cast-vote records, chain-of-custody handling,
// etc.) is out of scope; this package only reads one pre-staged file.
package electionfile

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/perf-analysis/internal/dirtree"
	"github.com/perf-analysis/internal/hostadapter"
)

// File is the on-disk shape of an observed-ballot input file.
type File struct {
	CandidateNames []string `json:"candidate_names"`
	Observed       []Entry  `json:"observed"`
}

// Entry is one named ranking and how many ballots were cast with it.
type Entry struct {
	Ranking []string `json:"ranking"`
	Count   int      `json:"count"`
}

// Load reads and parses an observed-ballot file from path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read election file: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty election file: %s", path)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse election file: %w", err)
	}
	return &f, nil
}

// CandidateSet builds the hostadapter.CandidateSet for this file's
// candidate names.
func (f *File) CandidateSet() (*hostadapter.CandidateSet, error) {
	return hostadapter.NewCandidateSet(f.CandidateNames)
}

// Apply observes every entry in the file against tree, translating named
// rankings to index ballots via candidates.
func (f *File) Apply(tree *dirtree.Tree, candidates *hostadapter.CandidateSet) error {
	for _, entry := range f.Observed {
		ballot, err := candidates.ToIndexBallot(entry.Ranking)
		if err != nil {
			return err
		}
		if err := tree.Update(ballot, entry.Count); err != nil {
			return err
		}
	}
	return nil
}
