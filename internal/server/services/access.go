// Package services contains the server-side business logic. Every operation
// takes the verified caller explicitly; transports only decode, call and map
// errors.
package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/dualcal/internal/common"
	"github.com/dmitrijs2005/dualcal/internal/roles"
	"github.com/dmitrijs2005/dualcal/internal/server/auth"
	"github.com/dmitrijs2005/dualcal/internal/server/models"
	"github.com/dmitrijs2005/dualcal/internal/timex"
	"github.com/go-playground/validator"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// "isodate" accepts calendar dates in the stored YYYY-MM-DD form.
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(timex.DateLayout, fl.Field().String())
		return err == nil
	})
	return v
}

// validateInput runs the struct tags of in and reports the first failure as
// InvalidArgument.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return common.Status(common.ErrInvalidArgument, err.Error())
	}
	return common.Status(common.ErrInvalidArgument, fieldMessage(verrs[0]))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("field %s is a required field", field)
	case "isodate":
		return fmt.Sprintf("field %s must be a YYYY-MM-DD date", field)
	case "min", "gte":
		return fmt.Sprintf("field %s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("field %s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("field %s is not valid", field)
	}
}

func requireCaller(caller auth.Identity) error {
	if !caller.Authenticated() {
		return common.Status(common.ErrUnauthenticated, "Must be signed in")
	}
	return nil
}

// requireRole checks sign-in and then the caller's claims against min.
func requireRole(caller auth.Identity, min roles.Role, denied string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !caller.Role().AtLeast(min) {
		return common.Status(common.ErrPermissionDenied, denied)
	}
	return nil
}

// canManage reports whether caller may act on target's account: master
// admins manage everyone, admins manage the accounts assigned to them.
func canManage(caller auth.Identity, target models.UserAccount) bool {
	switch caller.Role() {
	case roles.MasterAdmin:
		return true
	case roles.Admin:
		return target.ManagedBy(caller.UID)
	case roles.User:
		return false
	}
	return false
}

func internalError(prefix string, err error) error {
	return common.Statusf(common.ErrInternal, "%s: %v", prefix, err)
}
