package content

// Capabilities checked by handlers.
const (
	CapManageOptions = "manage_options"
	CapPublishPosts  = "publish_posts"
	CapEditPosts     = "edit_posts"
)

var roleCapabilities = map[string][]string{
	"admin":       {CapManageOptions, CapPublishPosts, CapEditPosts},
	"editor":      {CapPublishPosts, CapEditPosts},
	"author":      {CapPublishPosts, CapEditPosts},
	"contributor": {CapEditPosts},
}

// UserContext represents the authenticated user, set by auth middleware.
type UserContext struct {
	ID    string   `json:"id"`
	Roles []string `json:"roles"`
}

// Can checks whether any of the user's roles grants the capability.
// A nil user can do nothing.
func (u *UserContext) Can(capability string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		for _, c := range roleCapabilities[r] {
			if c == capability {
				return true
			}
		}
	}
	return false
}
