package testrail

// Project ...
type Project struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	SuiteMode   int    `json:"suite_mode"`
	IsCompleted bool   `json:"is_completed"`
	URL         string `json:"url"`
}

// Suite modes of a project.
const (
	SuiteModeSingle          = 1
	SuiteModeSingleBaselines = 2
	SuiteModeMultipleSuites  = 3
)

// User ...
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}

// Suite ...
type Suite struct {
	ID          int    `json:"id"`
	ProjectID   int    `json:"project_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Section ...
type Section struct {
	ID          int    `json:"id"`
	SuiteID     int    `json:"suite_id"`
	ParentID    *int   `json:"parent_id"`
	Depth       int    `json:"depth"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewSection is the payload of add_section.
type NewSection struct {
	SuiteID     int    `json:"suite_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Case ...
type Case struct {
	ID         int    `json:"id"`
	SectionID  int    `json:"section_id"`
	SuiteID    int    `json:"suite_id"`
	Title      string `json:"title"`
	TemplateID int    `json:"template_id"`
	TypeID     int    `json:"type_id"`
	PriorityID int    `json:"priority_id"`
}

// NewCase is the payload of add_case.
type NewCase struct {
	Title                string `json:"title"`
	TemplateID           int    `json:"template_id"`
	TypeID               int    `json:"type_id"`
	PriorityID           int    `json:"priority_id"`
	Estimate             string `json:"estimate,omitempty"`
	CustomAutomationType int    `json:"custom_automation_type"`
	CustomPreconds       string `json:"custom_preconds,omitempty"`
}

// Run ...
type Run struct {
	ID          int    `json:"id"`
	ProjectID   int    `json:"project_id"`
	SuiteID     int    `json:"suite_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IncludeAll  bool   `json:"include_all"`
	URL         string `json:"url"`
}

// NewRun is the payload of add_run.
type NewRun struct {
	SuiteID     int    `json:"suite_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IncludeAll  bool   `json:"include_all"`
	CaseIDs     []int  `json:"case_ids"`
}

// Result ...
type Result struct {
	ID       int    `json:"id"`
	TestID   int    `json:"test_id"`
	StatusID int    `json:"status_id"`
	Comment  string `json:"comment"`
	Elapsed  string `json:"elapsed"`
}

// NewResult is the payload of add_result_for_case.
type NewResult struct {
	StatusID int    `json:"status_id"`
	Comment  string `json:"comment,omitempty"`
	Elapsed  string `json:"elapsed,omitempty"`
}

// Default TestRail result statuses.
const (
	StatusPassed  = 1
	StatusBlocked = 2
	StatusFailed  = 5
)
