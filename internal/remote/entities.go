package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/verdantlabs/verdant/internal/entity"
)

// ListQuestions fetches the question catalog
func (c *Client) ListQuestions(ctx context.Context) ([]*entity.Question, error) {
	var out []*entity.Question
	if err := c.get(ctx, "/api/questions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetQuestion fetches a single question
func (c *Client) GetQuestion(ctx context.Context, id string) (*entity.Question, error) {
	var out entity.Question
	if err := c.get(ctx, "/api/questions/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCategories fetches the category catalog
func (c *Client) ListCategories(ctx context.Context) ([]*entity.Category, error) {
	var out []*entity.Category
	if err := c.get(ctx, "/api/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCategory creates a category on the server. The idempotency key
// lets the server deduplicate retried creations.
func (c *Client) CreateCategory(ctx context.Context, cat *entity.Category, idempotencyKey string) (*entity.Category, error) {
	var out entity.Category
	if err := c.do(ctx, http.MethodPost, "/api/categories", idempotencyKey, cat, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCategory updates a category on the server
func (c *Client) UpdateCategory(ctx context.Context, cat *entity.Category) (*entity.Category, error) {
	var out entity.Category
	if err := c.do(ctx, http.MethodPut, "/api/categories/"+url.PathEscape(cat.ID), "", cat, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteCategory deletes a category on the server
func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/categories/"+url.PathEscape(id), "", nil, nil)
}

// ListAssessments fetches all assessments visible to the caller
func (c *Client) ListAssessments(ctx context.Context) ([]*entity.Assessment, error) {
	var out []*entity.Assessment
	if err := c.get(ctx, "/api/assessments", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAssessment fetches a single assessment
func (c *Client) GetAssessment(ctx context.Context, id string) (*entity.Assessment, error) {
	var out entity.Assessment
	if err := c.get(ctx, "/api/assessments/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAssessment creates an assessment on the server
func (c *Client) CreateAssessment(ctx context.Context, a *entity.Assessment, idempotencyKey string) (*entity.Assessment, error) {
	var out entity.Assessment
	if err := c.do(ctx, http.MethodPost, "/api/assessments", idempotencyKey, a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAssessment updates an assessment on the server
func (c *Client) UpdateAssessment(ctx context.Context, a *entity.Assessment) (*entity.Assessment, error) {
	var out entity.Assessment
	if err := c.do(ctx, http.MethodPut, "/api/assessments/"+url.PathEscape(a.ID), "", a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAssessment deletes an assessment on the server
func (c *Client) DeleteAssessment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/assessments/"+url.PathEscape(id), "", nil, nil)
}

// ListResponses fetches the responses of one assessment
func (c *Client) ListResponses(ctx context.Context, assessmentID string) ([]*entity.Response, error) {
	var out []*entity.Response
	path := fmt.Sprintf("/api/assessments/%s/responses", url.PathEscape(assessmentID))
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateResponse creates a response on the server
func (c *Client) CreateResponse(ctx context.Context, r *entity.Response, idempotencyKey string) (*entity.Response, error) {
	var out entity.Response
	path := fmt.Sprintf("/api/assessments/%s/responses", url.PathEscape(r.AssessmentID))
	if err := c.do(ctx, http.MethodPost, path, idempotencyKey, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateResponse updates a response on the server
func (c *Client) UpdateResponse(ctx context.Context, r *entity.Response) (*entity.Response, error) {
	var out entity.Response
	if err := c.do(ctx, http.MethodPut, "/api/responses/"+url.PathEscape(r.ID), "", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteResponse deletes a response on the server
func (c *Client) DeleteResponse(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/responses/"+url.PathEscape(id), "", nil, nil)
}

// ListSubmissions fetches all submissions visible to the caller
func (c *Client) ListSubmissions(ctx context.Context) ([]*entity.Submission, error) {
	var out []*entity.Submission
	if err := c.get(ctx, "/api/submissions", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSubmission fetches a single submission
func (c *Client) GetSubmission(ctx context.Context, id string) (*entity.Submission, error) {
	var out entity.Submission
	if err := c.get(ctx, "/api/submissions/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSubmission submits an assessment snapshot to the server
func (c *Client) CreateSubmission(ctx context.Context, s *entity.Submission, idempotencyKey string) (*entity.Submission, error) {
	var out entity.Submission
	if err := c.do(ctx, http.MethodPost, "/api/submissions", idempotencyKey, s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSubmission updates a submission's review state on the server
func (c *Client) UpdateSubmission(ctx context.Context, s *entity.Submission) (*entity.Submission, error) {
	var out entity.Submission
	if err := c.do(ctx, http.MethodPut, "/api/submissions/"+url.PathEscape(s.ID), "", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrganization fetches an organization
func (c *Client) GetOrganization(ctx context.Context, id string) (*entity.Organization, error) {
	var out entity.Organization
	if err := c.get(ctx, "/api/organizations/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateOrganization updates an organization on the server
func (c *Client) UpdateOrganization(ctx context.Context, o *entity.Organization) (*entity.Organization, error) {
	var out entity.Organization
	if err := c.do(ctx, http.MethodPut, "/api/organizations/"+url.PathEscape(o.ID), "", o, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMembers fetches the members of an organization
func (c *Client) ListMembers(ctx context.Context, organizationID string) ([]*entity.OrganizationMember, error) {
	var out []*entity.OrganizationMember
	path := fmt.Sprintf("/api/organizations/%s/members", url.PathEscape(organizationID))
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateMember adds a member to an organization
func (c *Client) CreateMember(ctx context.Context, m *entity.OrganizationMember, idempotencyKey string) (*entity.OrganizationMember, error) {
	var out entity.OrganizationMember
	path := fmt.Sprintf("/api/organizations/%s/members", url.PathEscape(m.OrganizationID))
	if err := c.do(ctx, http.MethodPost, path, idempotencyKey, m, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMember removes a member from an organization
func (c *Client) DeleteMember(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/members/"+url.PathEscape(id), "", nil, nil)
}

// ListInvitations fetches the pending invitations of an organization
func (c *Client) ListInvitations(ctx context.Context, organizationID string) ([]*entity.Invitation, error) {
	var out []*entity.Invitation
	path := fmt.Sprintf("/api/organizations/%s/invitations", url.PathEscape(organizationID))
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInvitation invites an email address to an organization
func (c *Client) CreateInvitation(ctx context.Context, i *entity.Invitation, idempotencyKey string) (*entity.Invitation, error) {
	var out entity.Invitation
	path := fmt.Sprintf("/api/organizations/%s/invitations", url.PathEscape(i.OrganizationID))
	if err := c.do(ctx, http.MethodPost, path, idempotencyKey, i, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteInvitation revokes an invitation
func (c *Client) DeleteInvitation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/invitations/"+url.PathEscape(id), "", nil, nil)
}

// ListReports fetches all reports visible to the caller
func (c *Client) ListReports(ctx context.Context) ([]*entity.Report, error) {
	var out []*entity.Report
	if err := c.get(ctx, "/api/reports", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetReport fetches a single report
func (c *Client) GetReport(ctx context.Context, id string) (*entity.Report, error) {
	var out entity.Report
	if err := c.get(ctx, "/api/reports/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateReport creates a report on the server
func (c *Client) CreateReport(ctx context.Context, r *entity.Report, idempotencyKey string) (*entity.Report, error) {
	var out entity.Report
	if err := c.do(ctx, http.MethodPost, "/api/reports", idempotencyKey, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListRecommendations fetches the recommendations of a report
func (c *Client) ListRecommendations(ctx context.Context, reportID string) ([]*entity.Recommendation, error) {
	var out []*entity.Recommendation
	path := fmt.Sprintf("/api/reports/%s/recommendations", url.PathEscape(reportID))
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRecommendation creates a recommendation on the server
func (c *Client) CreateRecommendation(ctx context.Context, r *entity.Recommendation, idempotencyKey string) (*entity.Recommendation, error) {
	var out entity.Recommendation
	path := fmt.Sprintf("/api/reports/%s/recommendations", url.PathEscape(r.ReportID))
	if err := c.do(ctx, http.MethodPost, path, idempotencyKey, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRecommendation updates a recommendation on the server, e.g.
// moving it across the kanban board
func (c *Client) UpdateRecommendation(ctx context.Context, r *entity.Recommendation) (*entity.Recommendation, error) {
	var out entity.Recommendation
	if err := c.do(ctx, http.MethodPut, "/api/recommendations/"+url.PathEscape(r.ID), "", r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
