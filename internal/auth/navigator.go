package auth

// View names the screen a successful transition leads to.
type View string

const (
	ViewLogin     View = "login"
	ViewDashboard View = "dashboard"
)

// Navigator receives view changes. Calls happen outside the machine's lock.
type Navigator interface {
	Navigate(View)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(View)

func (f NavigatorFunc) Navigate(v View) { f(v) }

type NopNavigator struct{}

func (NopNavigator) Navigate(View) {}
