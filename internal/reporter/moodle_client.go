package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gradecore/pkg/domain"
)

// MoodleClient is the web-service surface the moodle reporter needs: due
// date lookup, prior-grade lookup (for both the only-higher and prereq
// checks), and grade submission. Modeled as an interface so the reporter's
// policy logic is testable without a real LMS.
type MoodleClient interface {
	DueDate(ctx context.Context, courseModuleID string) (due time.Time, has bool, err error)
	LatestGrade(ctx context.Context, courseModuleID, userMoodleID string) (grade float64, has bool, err error)
	SubmitGrade(ctx context.Context, courseModuleID, userMoodleID string, grade float64, comment string) error
}

// HTTPMoodleClient calls Moodle's standard REST web-service protocol
// (webservice/rest/server.php, moodlewsrestformat=json) using the
// mod_assign_* family of functions. Configuration (host/token/service) is
// process-wide, loaded by internal/config from GRADECORE_MOODLE_*.
type HTTPMoodleClient struct {
	Host    string
	Token   string
	Service string
	HTTP    *http.Client
}

// NewHTTPMoodleClient constructs a client against a Moodle site. httpClient
// defaults to http.DefaultClient when nil.
func NewHTTPMoodleClient(host, token, service string, httpClient *http.Client) *HTTPMoodleClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPMoodleClient{Host: host, Token: token, Service: service, HTTP: httpClient}
}

var _ MoodleClient = (*HTTPMoodleClient)(nil)

func (c *HTTPMoodleClient) call(ctx context.Context, function string, params url.Values, out any) error {
	form := url.Values{}
	form.Set("wstoken", c.Token)
	form.Set("wsfunction", function)
	form.Set("moodlewsrestformat", "json")
	for k, vs := range params {
		for _, v := range vs {
			form.Add(k, v)
		}
	}

	endpoint := c.Host + "/webservice/rest/server.php"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return domain.NewError(domain.KindLMSUnreachable, "reporter.moodle.call", err)
	}
	req.URL.RawQuery = form.Encode()

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return domain.NewError(domain.KindLMSUnreachable, "reporter.moodle.call", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewError(domain.KindLMSUnreachable, "reporter.moodle.call",
			fmt.Errorf("moodle %s returned status %d", function, resp.StatusCode))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewError(domain.KindLMSUnreachable, "reporter.moodle.call", err)
	}
	return nil
}

func (c *HTTPMoodleClient) DueDate(ctx context.Context, courseModuleID string) (time.Time, bool, error) {
	var resp struct {
		Assignments []struct {
			DueDate int64 `json:"duedate"`
		} `json:"assignments"`
	}
	params := url.Values{"assignmentids[0]": {courseModuleID}}
	if err := c.call(ctx, "mod_assign_get_assignments", params, &resp); err != nil {
		return time.Time{}, false, err
	}
	if len(resp.Assignments) == 0 || resp.Assignments[0].DueDate == 0 {
		return time.Time{}, false, nil
	}
	return time.Unix(resp.Assignments[0].DueDate, 0).UTC(), true, nil
}

func (c *HTTPMoodleClient) LatestGrade(ctx context.Context, courseModuleID, userMoodleID string) (float64, bool, error) {
	var resp struct {
		Grades []struct {
			Grade string `json:"grade"`
		} `json:"grades"`
	}
	params := url.Values{
		"assignmentids[0]": {courseModuleID},
		"userids[0]":       {userMoodleID},
	}
	if err := c.call(ctx, "mod_assign_get_grades", params, &resp); err != nil {
		return 0, false, err
	}
	if len(resp.Grades) == 0 {
		return 0, false, nil
	}
	grade, err := strconv.ParseFloat(resp.Grades[0].Grade, 64)
	if err != nil {
		return 0, false, nil
	}
	return grade, true, nil
}

func (c *HTTPMoodleClient) SubmitGrade(ctx context.Context, courseModuleID, userMoodleID string, grade float64, comment string) error {
	params := url.Values{
		"assignmentid":       {courseModuleID},
		"userid":             {userMoodleID},
		"grade":              {strconv.FormatFloat(grade, 'f', -1, 64)},
		"attemptnumber":      {"-1"},
		"addattempt":         {"0"},
		"workflowstate":      {"graded"},
		"applytoall":         {"0"},
		"plugindata[assignfeedbackcomments_editor][text]": {comment},
	}
	return c.call(ctx, "mod_assign_save_grade", params, nil)
}
