package templates

// ActivationCodeData holds variables for the user.activation_code template.
type ActivationCodeData struct {
	Email        string
	Code         string
	RoleLabel    string
	ExpiresAt    string
	RegisterURL  string
	SupportEmail string
}

var ActivationCode = Expect[ActivationCodeData]("user.activation_code")

// PasswordResetData holds variables for the user.password_reset template.
type PasswordResetData struct {
	FirstName    string
	ResetURL     string
	SupportEmail string
}

var PasswordReset = Expect[PasswordResetData]("user.password_reset")

// NewMessageData is sent to the recipient of an internal message.
type NewMessageData struct {
	RecipientFirstName string
	SenderName         string
	Subject            string
	MessagesURL        string
}

var NewMessage = Expect[NewMessageData]("messaging.new_message")

// ContractSentData is sent to the recipient of a contract awaiting signature.
type ContractSentData struct {
	RecipientFirstName string
	Title              string
	Amount             string
	ContractsURL       string
}

var ContractSent = Expect[ContractSentData]("contract.sent")

// ContactAdminData notifies the administrator of a contact form submission.
type ContactAdminData struct {
	FirstName            string
	LastName             string
	Email                string
	Message              string
	InterestedFormations []string
}

var ContactAdmin = Expect[ContactAdminData]("prospect.contact_admin")

// CatalogueDeliveryData accompanies the catalogue sent to a requester.
type CatalogueDeliveryData struct {
	FirstName    string
	SupportEmail string
}

var CatalogueDelivery = Expect[CatalogueDeliveryData]("prospect.catalogue_delivery")

// CatalogueAdminData notifies the administrator of a catalogue download.
// PreviousDownload is empty on a first download.
type CatalogueAdminData struct {
	FirstName            string
	LastName             string
	Email                string
	InterestedFormations []string
	PreviousDownload     string
}

var CatalogueAdmin = Expect[CatalogueAdminData]("prospect.catalogue_admin")

// ProspectOutreachData is an administrator's message to a prospect.
type ProspectOutreachData struct {
	FirstName string
	Subject   string
	Message   string
}

var ProspectOutreach = Expect[ProspectOutreachData]("prospect.outreach")
