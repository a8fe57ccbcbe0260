package history

import "time"

// ActivityInstance is a historic activity instance.
type ActivityInstance struct {
	Base
	ActivityID   string     `json:"activity_id"`
	ActivityName string     `json:"activity_name,omitempty"`
	ActivityType string     `json:"activity_type"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
}

// Kind implements HistoricRecord.
func (*ActivityInstance) Kind() Kind { return KindActivityInstance }

// TaskInstance is a historic user task instance.
type TaskInstance struct {
	Base
	Name              string `json:"name"`
	Assignee          string `json:"assignee,omitempty"`
	TaskDefinitionKey string `json:"task_definition_key"`
}

// Kind implements HistoricRecord.
func (*TaskInstance) Kind() Kind { return KindTaskInstance }

// VariableInstance is a historic variable instance. Object and binary
// values live in the referenced byte array; TextValue holds primitives.
type VariableInstance struct {
	Base
	Name      string `json:"name"`
	TypeName  string `json:"type_name"`
	TextValue string `json:"text_value,omitempty"`
}

// Kind implements HistoricRecord.
func (*VariableInstance) Kind() Kind { return KindVariableInstance }

// Detail types.
const (
	DetailVariableUpdate = "variable_update"
	DetailFormProperty   = "form_property"
)

// Detail is a historic detail: a variable update or a submitted form property.
type Detail struct {
	Base
	DetailType         string `json:"detail_type"`
	VariableInstanceID string `json:"variable_instance_id,omitempty"`
	Name               string `json:"name"`
	TypeName           string `json:"type_name,omitempty"`
	TextValue          string `json:"text_value,omitempty"`
}

// Kind implements HistoricRecord.
func (*Detail) Kind() Kind { return KindDetail }

// Comment is a task or process instance comment.
type Comment struct {
	Base
	TaskID  string `json:"task_id,omitempty"`
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message"`
}

// Kind implements HistoricRecord.
func (*Comment) Kind() Kind { return KindComment }

// Attachment is a task or process instance attachment. Inline content is
// stored in the referenced byte array.
type Attachment struct {
	Base
	TaskID      string `json:"task_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Kind implements HistoricRecord.
func (*Attachment) Kind() Kind { return KindAttachment }

// Incident is a historic incident. Incidents of batch jobs carry a BatchID
// instead of a root process instance.
type Incident struct {
	Base
	IncidentType    string `json:"incident_type"`
	Message         string `json:"message,omitempty"`
	JobDefinitionID string `json:"job_definition_id,omitempty"`
}

// Kind implements HistoricRecord.
func (*Incident) Kind() Kind { return KindIncident }

// JobState is the lifecycle state recorded by a job log.
type JobState string

const (
	JobCreated    JobState = "created"
	JobFailed     JobState = "failed"
	JobSuccessful JobState = "successful"
	JobDeleted    JobState = "deleted"
)

// JobLog is a historic job log entry. The exception stacktrace of a failed
// job is stored in the referenced byte array.
type JobLog struct {
	Base
	JobID            string   `json:"job_id"`
	JobDefinitionID  string   `json:"job_definition_id,omitempty"`
	State            JobState `json:"state"`
	ExceptionMessage string   `json:"exception_message,omitempty"`
}

// Kind implements HistoricRecord.
func (*JobLog) Kind() Kind { return KindJobLog }

// ExternalTaskLog is a historic external task log entry. Error details are
// stored in the referenced byte array.
type ExternalTaskLog struct {
	Base
	ExternalTaskID string `json:"external_task_id"`
	TopicName      string `json:"topic_name"`
	WorkerID       string `json:"worker_id,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

// Kind implements HistoricRecord.
func (*ExternalTaskLog) Kind() Kind { return KindExternalTaskLog }

// IdentityLinkLog records candidate/assignee link changes on tasks.
type IdentityLinkLog struct {
	Base
	TaskID    string `json:"task_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	GroupID   string `json:"group_id,omitempty"`
	LinkType  string `json:"link_type"`
	Operation string `json:"operation"`
}

// Kind implements HistoricRecord.
func (*IdentityLinkLog) Kind() Kind { return KindIdentityLinkLog }

// DecisionInstance is a historic decision evaluation. Standalone evaluations
// have no root process instance; RootDecisionInstanceID scopes the inputs
// and outputs of one evaluation.
type DecisionInstance struct {
	Base
	DecisionDefinitionID  string    `json:"decision_definition_id"`
	DecisionDefinitionKey string    `json:"decision_definition_key"`
	EvaluationTime        time.Time `json:"evaluation_time"`
}

// Kind implements HistoricRecord.
func (*DecisionInstance) Kind() Kind { return KindDecisionInstance }

// DecisionInput is an input value of a decision evaluation.
type DecisionInput struct {
	Base
	DecisionInstanceID string `json:"decision_instance_id"`
	ClauseID           string `json:"clause_id"`
	TypeName           string `json:"type_name"`
	TextValue          string `json:"text_value,omitempty"`
}

// Kind implements HistoricRecord.
func (*DecisionInput) Kind() Kind { return KindDecisionInput }

// DecisionOutput is an output value of a decision evaluation.
type DecisionOutput struct {
	Base
	DecisionInstanceID string `json:"decision_instance_id"`
	ClauseID           string `json:"clause_id"`
	RuleID             string `json:"rule_id,omitempty"`
	VariableName       string `json:"variable_name"`
	TypeName           string `json:"type_name"`
	TextValue          string `json:"text_value,omitempty"`
}

// Kind implements HistoricRecord.
func (*DecisionOutput) Kind() Kind { return KindDecisionOutput }

// Authorization types.
const (
	AuthorizationGrant  = 1
	AuthorizationRevoke = 2
)

// Authorization resource types that point at historic data.
const (
	ResourceHistoricProcessInstance = "historic_process_instance"
	ResourceHistoricTask            = "historic_task"
)

// Authorization is a permission grant or revoke. It carries a root process
// instance and removal time only while its resource id names a concrete
// historic resource with a known owner.
type Authorization struct {
	Base
	AuthorizationType int    `json:"authorization_type"`
	UserID            string `json:"user_id,omitempty"`
	GroupID           string `json:"group_id,omitempty"`
	ResourceType      string `json:"resource_type"`
	ResourceID        string `json:"resource_id"`
	Permissions       int    `json:"permissions"`
}

// Kind implements HistoricRecord.
func (*Authorization) Kind() Kind { return KindAuthorization }

// Batch is a historic batch. Its job logs and incidents reference its id
// through their BatchID.
type Batch struct {
	Base
	Type      string     `json:"type"`
	TotalJobs int        `json:"total_jobs"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// Kind implements HistoricRecord.
func (*Batch) Kind() Kind { return KindBatch }
