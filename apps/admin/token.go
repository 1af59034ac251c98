package main

import (
	"fmt"

	echoapi "github.com/trezcool/bulletin/apps/api/echo"
	"github.com/trezcool/bulletin/core"
)

func (cli *commandLine) token(subject, role, email string) error {
	valid := false
	for _, r := range echoapi.AllRoles {
		if r == role {
			valid = true
			break
		}
	}
	if !valid {
		return core.NewValidationError(nil, core.FieldError{Field: "role", Error: fmt.Sprintf("unknown role %q", role)})
	}

	token, err := echoapi.GenerateToken(cli.conf, echoapi.NewClaims(cli.conf, subject, subject, email, role))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
