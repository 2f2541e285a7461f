package tdd

// StepContext is the immutable snapshot every attempt of a step works from.
// It is captured once before the first attempt and is not refreshed between attempts,
// even though failed attempts mutate and then roll back the working tree.
type StepContext struct {
	Role              Role     `json:"role"`
	StepIndex         int      `json:"step_index"`
	KataDescription   string   `json:"kata_description"`
	LastCommitMessage string   `json:"last_commit_message"`
	LastDiff          string   `json:"last_diff"`
	FileList          []string `json:"file_list"`
}

// StepResult is what a change producer reports after applying an edit
type StepResult struct {
	FilesChanged  []string `json:"files_changed"`
	CommitMessage string   `json:"commit_message"`
	Notes         string   `json:"notes"`
}

// CheckOutcome is the result of one verification command
type CheckOutcome struct {
	OK     bool   `json:"ok"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// Checks groups the three outcomes of a single attempt
type Checks struct {
	Format CheckOutcome
	Static CheckOutcome
	Test   CheckOutcome
}

// TestVerdict returns PASS or FAIL for the test outcome
func (c Checks) TestVerdict() string {
	if c.Test.OK {
		return "PASS"
	}
	return "FAIL"
}
