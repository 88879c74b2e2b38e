package pingone

import domain "github.com/pingtools/usersync/internal/domain/bulk"

type apiName struct {
	Given  string `json:"given,omitempty"`
	Family string `json:"family,omitempty"`
}

type apiRef struct {
	ID string `json:"id,omitempty"`
}

type apiPassword struct {
	Value       string `json:"value"`
	ForceChange bool   `json:"forceChange"`
}

type apiUser struct {
	ID           string       `json:"id,omitempty"`
	Username     string       `json:"username,omitempty"`
	Email        string       `json:"email,omitempty"`
	Name         *apiName     `json:"name,omitempty"`
	Title        string       `json:"title,omitempty"`
	PrimaryPhone string       `json:"primaryPhone,omitempty"`
	Population   *apiRef      `json:"population,omitempty"`
	Enabled      *bool        `json:"enabled,omitempty"`
	Password     *apiPassword `json:"password,omitempty"`
}

type usersPage struct {
	Embedded struct {
		Users []apiUser `json:"users"`
	} `json:"_embedded"`
	Links struct {
		Next struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"_links"`
}

type apiError struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details []struct {
		Code    string `json:"code"`
		Target  string `json:"target"`
		Message string `json:"message"`
	} `json:"details"`
}

func (u apiUser) toDomain() domain.DirectoryUser {
	out := domain.DirectoryUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Title:    u.Title,
		Phone:    u.PrimaryPhone,
		Enabled:  u.Enabled == nil || *u.Enabled,
	}
	if u.Name != nil {
		out.GivenName = u.Name.Given
		out.FamilyName = u.Name.Family
	}
	if u.Population != nil {
		out.PopulationID = u.Population.ID
	}
	return out
}

func fromDomain(u domain.DirectoryUser) apiUser {
	out := apiUser{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Title:        u.Title,
		PrimaryPhone: u.Phone,
	}
	if u.GivenName != "" || u.FamilyName != "" {
		out.Name = &apiName{Given: u.GivenName, Family: u.FamilyName}
	}
	if u.PopulationID != "" {
		out.Population = &apiRef{ID: u.PopulationID}
	}
	enabled := u.Enabled
	out.Enabled = &enabled
	if u.Password != "" {
		out.Password = &apiPassword{Value: u.Password, ForceChange: true}
	}
	return out
}
