package cloud

import "fmt"

// ServicePrincipalCredential is the pull identity handed to the container instance. The
// password only exists in memory for the duration of a launch.
type ServicePrincipalCredential struct {
	AppId    string
	Password string
}

func (c ServicePrincipalCredential) String() string {
	return fmt.Sprintf("appId=%s password=%s", c.AppId, maskSecret(c.Password))
}

func (c ServicePrincipalCredential) GoString() string {
	return fmt.Sprintf("cloud.ServicePrincipalCredential{AppId:%q, Password:%q}", c.AppId, maskSecret(c.Password))
}

// MarshalYAML keeps the password out of serialized reports.
func (c ServicePrincipalCredential) MarshalYAML() (interface{}, error) {
	return map[string]string{
		"appId":    c.AppId,
		"password": maskSecret(c.Password),
	}, nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "******"
}
