package models

// Step is the 1-based position in the wizard pipeline.
type Step int

const (
	StepProfile       Step = 1
	StepAuthorization Step = 2
	StepCredentials   Step = 3
	StepPreferences   Step = 4
)

const (
	FirstStep = StepProfile
	LastStep  = StepPreferences
)

// Valid reports whether s lies within the pipeline.
func (s Step) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

// Clamp forces s into [FirstStep, LastStep].
func (s Step) Clamp() Step {
	if s < FirstStep {
		return FirstStep
	}
	if s > LastStep {
		return LastStep
	}
	return s
}

// ResumePoint is where a restored session lands. The authorization step
// has a payment side effect that cannot be safely replayed, so a session
// persisted there resumes on the profile step.
func (s Step) ResumePoint() Step {
	if s == StepAuthorization {
		return StepProfile
	}
	return s.Clamp()
}

func (s Step) String() string {
	if d, ok := definitions[s]; ok {
		return d.Name
	}
	return "unknown"
}

// FieldKind tells a front end how to collect a field.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldBool
	FieldFile
	FieldSecret
)

// Field describes one input of a step.
type Field struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
}

// StepDefinition is one fixed entry of the pipeline.
type StepDefinition struct {
	Step     Step
	Name     string
	Mutation string
	fields   map[Role][]Field
}

// Fields returns the inputs of the step for role.
func (d StepDefinition) Fields(role Role) []Field {
	return d.fields[role]
}

var authorizationFields = []Field{
	{Name: FieldABN, Label: "ABN", Kind: FieldText, Required: true},
	{Name: FieldPaymentDetails, Label: "Payment method token", Kind: FieldSecret, Required: true},
}

var credentialFields = []Field{
	{Name: FieldUsername, Label: "Username", Kind: FieldText, Required: true},
	{Name: FieldPassword, Label: "Password", Kind: FieldSecret, Required: true},
	{Name: FieldConfirmPassword, Label: "Confirm password", Kind: FieldSecret, Required: true},
}

var preferenceFields = []Field{
	{Name: FieldHeardAboutUs, Label: "How did you hear about us?", Kind: FieldText, Required: true},
	{Name: FieldNotificationsEnabled, Label: "Enable notifications", Kind: FieldBool},
	{Name: FieldAgreedToTerms, Label: "I agree to the terms", Kind: FieldBool, Required: true},
}

var definitions = map[Step]StepDefinition{
	StepProfile: {
		Step:     StepProfile,
		Name:     "profile",
		Mutation: "RegisterProfile",
		fields: map[Role][]Field{
			RoleCreator: {
				{Name: FieldFirstName, Label: "First name", Kind: FieldText, Required: true},
				{Name: FieldLastName, Label: "Last name", Kind: FieldText, Required: true},
				{Name: FieldEmail, Label: "Email", Kind: FieldText, Required: true},
				{Name: "phone", Label: "Phone", Kind: FieldText},
				{Name: "displayName", Label: "Display name", Kind: FieldText, Required: true},
				{Name: "niche", Label: "Content niche", Kind: FieldText},
				{Name: "location", Label: "Location", Kind: FieldText},
				{Name: "bio", Label: "Short bio", Kind: FieldText},
				{Name: FieldProfileImage, Label: "Profile image (path)", Kind: FieldFile},
			},
			RoleBrand: {
				{Name: FieldCompanyName, Label: "Company name", Kind: FieldText, Required: true},
				{Name: FieldContactName, Label: "Contact name", Kind: FieldText, Required: true},
				{Name: FieldEmail, Label: "Email", Kind: FieldText, Required: true},
				{Name: "phone", Label: "Phone", Kind: FieldText},
				{Name: "industry", Label: "Industry", Kind: FieldText, Required: true},
				{Name: "website", Label: "Website", Kind: FieldText},
				{Name: "location", Label: "Location", Kind: FieldText},
				{Name: FieldProfileImage, Label: "Business logo (path)", Kind: FieldFile},
			},
		},
	},
	StepAuthorization: {
		Step:     StepAuthorization,
		Name:     "authorization",
		Mutation: "RecordAuthorization",
		fields:   map[Role][]Field{RoleCreator: authorizationFields, RoleBrand: authorizationFields},
	},
	StepCredentials: {
		Step:     StepCredentials,
		Name:     "credentials",
		Mutation: "SetCredentials",
		fields:   map[Role][]Field{RoleCreator: credentialFields, RoleBrand: credentialFields},
	},
	StepPreferences: {
		Step:     StepPreferences,
		Name:     "preferences",
		Mutation: "FinalizePreferences",
		fields:   map[Role][]Field{RoleCreator: preferenceFields, RoleBrand: preferenceFields},
	},
}

// Definition returns the pipeline entry for s.
func Definition(s Step) (StepDefinition, bool) {
	d, ok := definitions[s]
	return d, ok
}
