package roles

// Dashboards is the set of dashboard panels a role may see.
type Dashboards struct {
	User   bool
	Admin  bool
	Master bool
}

// DashboardsFor returns the panels visible to r. Each role sees its own panel
// and every panel below it.
func DashboardsFor(r Role) Dashboards {
	switch r {
	case User:
		return Dashboards{User: true}
	case Admin:
		return Dashboards{User: true, Admin: true}
	case MasterAdmin:
		return Dashboards{User: true, Admin: true, Master: true}
	}
	return Dashboards{}
}

// Names lists the visible panels from lowest to highest.
func (d Dashboards) Names() []string {
	var out []string
	if d.User {
		out = append(out, "user")
	}
	if d.Admin {
		out = append(out, "admin")
	}
	if d.Master {
		out = append(out, "master")
	}
	return out
}
