package domain

type User struct {
	ID                 string
	DisplayName        string
	HealthCareCenterID *string
}

type HealthCareCenter struct {
	ID   string
	Name string
}
