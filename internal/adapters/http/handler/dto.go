package handler

import (
	"github.com/ogurasousui/employee-link-api/internal/core/employee"
	"github.com/ogurasousui/employee-link-api/internal/core/linking"
)

const dateLayout = "2006-01-02"

type employeeResponse struct {
	ID           int64   `json:"id"`
	Nom          string  `json:"nom"`
	Prenom       string  `json:"prenom"`
	Telephone    *string `json:"telephone"`
	Adresse      *string `json:"adresse"`
	Departement  string  `json:"departement"`
	Statut       string  `json:"statut"`
	DateEmbauche string  `json:"date_embauche"`
	UserID       *int64  `json:"user_id"`
	UserName     *string `json:"user_name"`
	UserEmail    *string `json:"user_email"`
	UserRole     *string `json:"user_role"`
}

func toEmployeeResponse(e *employee.Employee) employeeResponse {
	res := employeeResponse{
		ID:           e.ID,
		Nom:          e.Nom,
		Prenom:       e.Prenom,
		Telephone:    e.Telephone,
		Adresse:      e.Adresse,
		Departement:  e.Departement,
		Statut:       e.Statut,
		DateEmbauche: e.DateEmbauche.Format(dateLayout),
		UserID:       e.UserID,
	}
	if e.User != nil {
		name, email, role := e.User.Name, e.User.Email, e.User.Role
		res.UserName = &name
		res.UserEmail = &email
		res.UserRole = &role
	}
	return res
}

type createEmployeeRequest struct {
	Nom         string  `json:"nom" validate:"required"`
	Prenom      string  `json:"prenom" validate:"required"`
	Telephone   *string `json:"telephone"`
	Adresse     *string `json:"adresse"`
	Departement string  `json:"departement" validate:"required"`
	Statut      *string `json:"statut"`
	UserID      *int64  `json:"user_id" validate:"omitempty,gt=0"`
}

func (req createEmployeeRequest) toInput() employee.CreateEmployeeInput {
	return employee.CreateEmployeeInput{
		Nom:         req.Nom,
		Prenom:      req.Prenom,
		Telephone:   req.Telephone,
		Adresse:     req.Adresse,
		Departement: req.Departement,
		Statut:      req.Statut,
		UserID:      req.UserID,
	}
}

// updateEmployeeRequest はキーの有無で変更対象を表します。null は値の削除です。
type updateEmployeeRequest struct {
	Nom         employee.Field[string]  `json:"nom"`
	Prenom      employee.Field[string]  `json:"prenom"`
	Telephone   employee.Field[*string] `json:"telephone"`
	Adresse     employee.Field[*string] `json:"adresse"`
	Departement employee.Field[string]  `json:"departement"`
	Statut      employee.Field[string]  `json:"statut"`
	UserID      employee.Field[*int64]  `json:"user_id"`
}

func (req updateEmployeeRequest) toPatch() employee.Patch {
	return employee.Patch{
		Nom:         req.Nom,
		Prenom:      req.Prenom,
		Telephone:   req.Telephone,
		Adresse:     req.Adresse,
		Departement: req.Departement,
		Statut:      req.Statut,
		UserID:      req.UserID,
	}
}

type manualLinkRequest struct {
	EmployeeID *int64 `json:"employeeId" validate:"required,gt=0"`
	UserID     *int64 `json:"userId" validate:"required,gt=0"`
}

type manualLinkResponse struct {
	Message    string `json:"message"`
	EmployeeID int64  `json:"employeeId"`
	UserID     int64  `json:"userId"`
}

type unlinkRequest struct {
	EmployeeID *int64 `json:"employeeId" validate:"required,gt=0"`
}

type unlinkResponse struct {
	Message        string `json:"message"`
	EmployeeID     int64  `json:"employeeId"`
	PreviousUserID *int64 `json:"previousUserId"`
	Changed        bool   `json:"changed"`
}

type unlinkedEmployeeResponse struct {
	ID           int64  `json:"id"`
	Nom          string `json:"nom"`
	Prenom       string `json:"prenom"`
	Departement  string `json:"departement"`
	Statut       string `json:"statut"`
	DateEmbauche string `json:"date_embauche"`
}

type availableUserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type overviewResponse struct {
	UnlinkedEmployees []unlinkedEmployeeResponse `json:"unlinkedEmployees"`
	AvailableUsers    []availableUserResponse    `json:"availableUsers"`
	CanAutoLink       bool                       `json:"canAutoLink"`
}

func toOverviewResponse(o *linking.Overview) overviewResponse {
	res := overviewResponse{
		UnlinkedEmployees: make([]unlinkedEmployeeResponse, 0, len(o.UnlinkedEmployees)),
		AvailableUsers:    make([]availableUserResponse, 0, len(o.AvailableUsers)),
		CanAutoLink:       o.CanAutoLink(),
	}
	for _, e := range o.UnlinkedEmployees {
		res.UnlinkedEmployees = append(res.UnlinkedEmployees, unlinkedEmployeeResponse{
			ID:           e.ID,
			Nom:          e.Nom,
			Prenom:       e.Prenom,
			Departement:  e.Departement,
			Statut:       e.Statut,
			DateEmbauche: e.DateEmbauche.Format(dateLayout),
		})
	}
	for _, u := range o.AvailableUsers {
		res.AvailableUsers = append(res.AvailableUsers, availableUserResponse{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	return res
}

type pairResponse struct {
	EmployeeID int64 `json:"employeeId"`
	UserID     int64 `json:"userId"`
}

func toPairResponses(pairs []linking.Pair) []pairResponse {
	out := make([]pairResponse, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, pairResponse{EmployeeID: p.EmployeeID, UserID: p.UserID})
	}
	return out
}

type planResponse struct {
	Pairs              []pairResponse `json:"pairs"`
	RemainingEmployees int            `json:"remainingEmployees"`
	RemainingUsers     int            `json:"remainingUsers"`
	NothingToLink      bool           `json:"nothingToLink"`
}

func toPlanResponse(p *linking.Plan) planResponse {
	return planResponse{
		Pairs:              toPairResponses(p.Pairs),
		RemainingEmployees: p.RemainingEmployees,
		RemainingUsers:     p.RemainingUsers,
		NothingToLink:      p.Empty(),
	}
}

type pairOutcomeResponse struct {
	EmployeeID int64  `json:"employeeId"`
	UserID     int64  `json:"userId"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
}

type autoLinkResponse struct {
	Message            string                `json:"message"`
	Strategy           string                `json:"strategy"`
	RequestedRows      int                   `json:"requestedRows"`
	AffectedRows       int                   `json:"affectedRows"`
	Partial            bool                  `json:"partial"`
	NothingToLink      bool                  `json:"nothingToLink,omitempty"`
	Linked             []pairResponse        `json:"linked"`
	Outcomes           []pairOutcomeResponse `json:"outcomes,omitempty"`
	RemainingEmployees int                   `json:"remainingEmployees"`
	RemainingUsers     int                   `json:"remainingUsers"`
}

func toAutoLinkResponse(message string, r *linking.ApplyResult) autoLinkResponse {
	res := autoLinkResponse{
		Message:            message,
		Strategy:           string(r.Strategy),
		RequestedRows:      r.Requested,
		AffectedRows:       r.Affected,
		Partial:            r.Partial(),
		NothingToLink:      r.NothingToLink(),
		Linked:             toPairResponses(r.Linked),
		RemainingEmployees: r.RemainingEmployees,
		RemainingUsers:     r.RemainingUsers,
	}
	for _, o := range r.Outcomes {
		out := pairOutcomeResponse{EmployeeID: o.EmployeeID, UserID: o.UserID, Outcome: string(o.Outcome)}
		if o.Err != nil {
			out.Error = o.Err.Error()
		}
		res.Outcomes = append(res.Outcomes, out)
	}
	return res
}
