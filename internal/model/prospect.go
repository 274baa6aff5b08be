package model

import "fmt"

// Prospect is an alumnus who may be called. NRIC is the natural key.
type Prospect struct {
	ID              int64  `db:"id" json:"id"`
	NRIC            string `db:"nric" json:"nric" validate:"required,max=15"`
	Salutation      string `db:"salutation" json:"salutation" validate:"omitempty,oneof=Dr Mdm Mr Mrs Ms"`
	Name            string `db:"name" json:"name" validate:"required,max=50"`
	Gender          string `db:"gender" json:"gender" validate:"omitempty,oneof=F M"`
	Email           string `db:"email" json:"email" validate:"omitempty,email"`
	Address1        string `db:"address_1" json:"address_1" validate:"max=50"`
	Address2        string `db:"address_2" json:"address_2" validate:"max=50"`
	Address3        string `db:"address_3" json:"address_3" validate:"max=50"`
	AddressPostal   string `db:"address_postal" json:"address_postal" validate:"max=6"`
	PhoneHome       string `db:"phone_home" json:"phone_home" validate:"max=8"`
	PhoneMobile     string `db:"phone_mobile" json:"phone_mobile" validate:"max=8"`
	EducationSchool string `db:"education_school" json:"education_school" validate:"required,max=50"`
	EducationDegree string `db:"education_degree" json:"education_degree" validate:"required,max=50"`
	EducationYear   int    `db:"education_year" json:"education_year" validate:"required,min=1950,notfutureyear"`
}

func (p *Prospect) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.NRIC)
}

func (p *Prospect) Validate() error {
	return check("Prospect", p)
}
