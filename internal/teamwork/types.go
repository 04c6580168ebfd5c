package teamwork

// Task represents a Teamwork task from the v3 API.
type Task struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Status        string   `json:"status"`
	Priority      string   `json:"priority"`
	ProjectID     int64    `json:"projectId"`
	CreatedOn     string   `json:"createdOn"`
	LastChangedOn string   `json:"lastChangedOn"`
	Tags          []Tag    `json:"tags"`
	AssigneeIDs   []int64  `json:"assigneeUserIds"`
	CreatedBy     int64    `json:"createdBy"`
}

// Tag is a Teamwork task tag.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Project represents a Teamwork project.
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Person represents a Teamwork user from the people endpoints.
type Person struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Title     string `json:"title"`
}

// Envelope shapes for the v3 list/detail endpoints.
type tasksResponse struct {
	Tasks []Task `json:"tasks"`
}

type taskResponse struct {
	Task Task `json:"task"`
}

type projectsResponse struct {
	Projects []Project `json:"projects"`
}

type peopleResponse struct {
	People []Person `json:"people"`
}
