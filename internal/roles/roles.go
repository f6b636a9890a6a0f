// Package roles holds the static role table used for navigation and
// permission checks.
package roles

import "sort"

const (
	SuperAdmin = "super_admin"
	HR         = "hr"
	Manager    = "manager"
	LnD        = "lnd"
)

// Permission names match the ones the dashboard frontend checks.
const (
	ManageUsers           = "manageUsers"
	ManageRoles           = "manageRoles"
	UploadData            = "uploadData"
	ViewLogs              = "viewLogs"
	SystemConfig          = "systemConfig"
	DatabaseHealth        = "databaseHealth"
	ViewDashboard         = "viewDashboard"
	ViewSentiment         = "viewSentiment"
	ViewTraining          = "viewTraining"
	ViewOrgMaturity       = "viewOrgMaturity"
	ViewReports           = "viewReports"
	ExportData            = "exportData"
	ViewAllDepartments    = "viewAllDepartments"
	ViewTeamMetrics       = "viewTeamMetrics"
	ViewDepartmentOnly    = "viewDepartmentOnly"
	NotifyHR              = "notifyHR"
	FlagEmployees         = "flagEmployees"
	ManageTraining        = "manageTraining"
	ViewTrainingAnalytics = "viewTrainingAnalytics"
	ViewSkillReadiness    = "viewSkillReadiness"
	ViewTrainingImpact    = "viewTrainingImpact"
	IdentifyTrainingNeeds = "identifyTrainingNeeds"
	SendRecommendations   = "sendRecommendations"
	GenerateReports       = "generateReports"
	CreateLearningPaths   = "createLearningPaths"
)

type DashboardConfig struct {
	Title        string `json:"title"`
	Subtitle     string `json:"subtitle"`
	PrimaryColor string `json:"primaryColor"`
}

type Definition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Permissions []string        `json:"permissions"`
	Routes      []string        `json:"routes"`
	Default     string          `json:"defaultRoute"`
	Dashboard   DashboardConfig `json:"dashboard"`
}

var permissions = map[string][]string{
	SuperAdmin: {
		ManageUsers, ManageRoles, UploadData, ViewLogs, SystemConfig, DatabaseHealth,
		ViewDashboard, ViewSentiment, ViewTraining, ViewOrgMaturity, ViewReports, ExportData,
	},
	HR: {
		ViewDashboard, ViewSentiment, ViewTraining, ViewOrgMaturity, ViewReports, ExportData, ViewAllDepartments,
	},
	Manager: {
		ViewDashboard, ViewSentiment, ViewTraining, ViewReports, ViewTeamMetrics, ViewDepartmentOnly,
		ExportData, NotifyHR, FlagEmployees,
	},
	LnD: {
		ViewDashboard, ViewTraining, ViewReports, ManageTraining, ViewTrainingAnalytics, ExportData,
		ViewSkillReadiness, ViewTrainingImpact, IdentifyTrainingNeeds, SendRecommendations,
		GenerateReports, CreateLearningPaths,
	},
}

var names = map[string]string{
	SuperAdmin: "Super Admin",
	HR:         "HR Manager",
	Manager:    "Department Manager",
	LnD:        "L&D Specialist",
}

var descriptions = map[string]string{
	SuperAdmin: "Full system access with user management and system configuration",
	HR:         "View sentiment, training, and workforce analytics",
	Manager:    "View team metrics, performance, and reports",
	LnD:        "Manage training programs and view learning analytics",
}

var dashboards = map[string]DashboardConfig{
	SuperAdmin: {Title: "System Administration", Subtitle: "Manage users, data, and system configuration", PrimaryColor: "red"},
	HR:         {Title: "HR Analytics Dashboard", Subtitle: "Workforce sentiment and training insights", PrimaryColor: "blue"},
	Manager:    {Title: "Team Performance Dashboard", Subtitle: "Track your team's productivity and adoption", PrimaryColor: "green"},
	LnD:        {Title: "Learning & Development Dashboard", Subtitle: "Training effectiveness and skill development", PrimaryColor: "purple"},
}

// All returns the known roles in a stable order.
func All() []string {
	return []string{SuperAdmin, HR, Manager, LnD}
}

// Valid reports whether role is one of the known roles.
func Valid(role string) bool {
	_, ok := permissions[role]
	return ok
}

// Has reports whether role grants permission. Unknown roles grant nothing.
func Has(role, permission string) bool {
	for _, p := range permissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// Permissions returns a sorted copy of the role's permission names.
func Permissions(role string) []string {
	out := append([]string(nil), permissions[role]...)
	sort.Strings(out)
	return out
}

// Routes lists the dashboard paths the role may open, in menu order.
func Routes(role string) []string {
	if !Valid(role) {
		return nil
	}
	var routes []string
	if Has(role, ViewDashboard) {
		routes = append(routes, "/dashboard")
	}
	if Has(role, ViewSentiment) {
		routes = append(routes, "/dashboard/sentiment")
	}
	if Has(role, ViewTraining) {
		routes = append(routes, "/dashboard/training")
	}
	if Has(role, ViewOrgMaturity) {
		routes = append(routes, "/dashboard/org")
	}
	if Has(role, ViewReports) {
		routes = append(routes, "/dashboard/reports")
	}
	switch role {
	case Manager:
		routes = append(routes, "/dashboard/team", "/dashboard/team/sentiment", "/dashboard/team/productivity", "/dashboard/team/training")
	case LnD:
		routes = append(routes, "/dashboard/lnd", "/dashboard/lnd/skill-readiness", "/dashboard/lnd/training-impact", "/dashboard/lnd/training-needs", "/dashboard/lnd/recommendations")
	case SuperAdmin:
		routes = append(routes, "/admin", "/admin/users", "/admin/data", "/admin/logs", "/admin/settings")
	}
	return routes
}

// DefaultRoute is where a freshly signed-in user lands.
func DefaultRoute(role string) string {
	if role == SuperAdmin {
		return "/admin"
	}
	return "/dashboard"
}

// Lookup assembles the full definition of a role.
func Lookup(role string) (Definition, bool) {
	if !Valid(role) {
		return Definition{}, false
	}
	return Definition{
		Name:        names[role],
		Description: descriptions[role],
		Permissions: Permissions(role),
		Routes:      Routes(role),
		Default:     DefaultRoute(role),
		Dashboard:   dashboards[role],
	}, true
}

// Table returns every role definition keyed by role.
func Table() map[string]Definition {
	out := make(map[string]Definition, len(permissions))
	for _, r := range All() {
		d, _ := Lookup(r)
		out[r] = d
	}
	return out
}
