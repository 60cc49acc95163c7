package application

import "sync"

// Routes the rider can be sent to.
const (
	RouteHome    = "/"
	RouteLogin   = "/login"
	RouteBooking = "/booking"
	RouteResult  = "/booking/result"
)

// Surface is the server-side view of what the rider's screen shows: the
// current route and whether a sign-in prompt is raised.
type Surface struct {
	mu         sync.Mutex
	route      string
	authPrompt bool
	reason     string
}

// NewSurface creates a surface positioned on the booking route.
func NewSurface() *Surface {
	return &Surface{route: RouteBooking}
}

// PromptReauth raises the sign-in prompt.
func (s *Surface) PromptReauth(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authPrompt = true
	s.reason = reason
}

// DismissPrompt clears the sign-in prompt.
func (s *Surface) DismissPrompt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authPrompt = false
	s.reason = ""
}

// CurrentRoute returns the route the rider is on.
func (s *Surface) CurrentRoute() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route
}

// Navigate moves the rider to route.
func (s *Surface) Navigate(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.route = route
}

// SurfaceView is a copy of the surface state.
type SurfaceView struct {
	Route        string `json:"route"`
	AuthRequired bool   `json:"auth_required"`
	AuthReason   string `json:"auth_reason,omitempty"`
}

// View returns a copy of the surface state.
func (s *Surface) View() SurfaceView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SurfaceView{Route: s.route, AuthRequired: s.authPrompt, AuthReason: s.reason}
}
