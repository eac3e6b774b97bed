package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/skripsi/core"
)

func newValidate(t *testing.T) *validator.Validate {
	t.Helper()
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	LoadCommonPasswords(core.NewNopLogger())
	return validate
}

func TestNewUser_passwordPolicy(t *testing.T) {
	validate := newValidate(t)

	tests := []struct {
		name    string
		pwd     string
		wantTag string
	}{
		{name: "too short", pwd: "Ab1!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "Abcd 1234!", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "no special", pwd: "Abcd12345", wantTag: pwdComplexityTag},
		{name: "no upper", pwd: "abcd1234!", wantTag: pwdComplexityTag},
		{name: "similar to username", pwd: "Studentx1!", wantTag: pwdAttrSimTag},
		{name: "common", pwd: "P@ssw0rd", wantTag: pwdNoCommonTag},
		{name: "valid", pwd: "Tesis#Ku2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := NewUser{
				Name:            "Budi",
				Username:        "studentx",
				Password:        tt.pwd,
				PasswordConfirm: tt.pwd,
				Roles:           []string{RoleStudent},
			}
			err := validate.Struct(nu)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			assert.Equal(t, tt.wantTag, vErrs[0].Tag())
		})
	}
}

func TestNewUser_rolesAndIdentity(t *testing.T) {
	validate := newValidate(t)
	pwd := "Tesis#Ku2024"

	err := validate.Struct(NewUser{Name: "X", Username: "someone", Password: pwd, PasswordConfirm: pwd, Roles: []string{"lol:"}})
	require.Error(t, err)
	assert.Equal(t, allRolesTag, err.(validator.ValidationErrors)[0].Tag())

	err = validate.Struct(NewUser{Name: "X", Password: pwd, PasswordConfirm: pwd})
	require.Error(t, err)
	assert.Len(t, err.(validator.ValidationErrors), 2) // username & email

	err = validate.Struct(NewUser{Name: "X", Email: "x@kampus.ac.id", Password: pwd, PasswordConfirm: pwd, Roles: LecturerRoles})
	assert.NoError(t, err)
}

func TestUser_roles(t *testing.T) {
	chair := User{Roles: []string{RoleProgramChair}}
	assert.True(t, chair.IsLecturer())
	assert.True(t, chair.IsProgramChair())
	assert.False(t, chair.IsStaff())

	lecturer := User{Roles: []string{RoleLecturer}}
	assert.True(t, lecturer.IsLecturer())
	assert.False(t, lecturer.IsProgramChair())

	assert.True(t, MaxRolePriority([]string{RoleStudent, RoleStaff}) > MaxRolePriority([]string{RoleProgramChair}))
	assert.Equal(t, 0, MaxRolePriority(nil))
}
