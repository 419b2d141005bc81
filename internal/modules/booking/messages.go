// README: Localized customer-facing messages for booking validation and delivery.
package booking

type msgKey string

const (
	msgNameRequired    msgKey = "name_required"
	msgEmailRequired   msgKey = "email_required"
	msgEmailInvalid    msgKey = "email_invalid"
	msgPhoneRequired   msgKey = "phone_required"
	msgPhoneInvalid    msgKey = "phone_invalid"
	msgContactInvalid  msgKey = "contact_invalid"
	msgConsentRequired msgKey = "consent_required"
	msgRouteRequired   msgKey = "route_required"
	msgVehicleRequired msgKey = "vehicle_required"
	msgSendFailed      msgKey = "send_failed"
)

var messages = map[string]map[msgKey]string{
	"en": {
		msgNameRequired:    "Please enter your name.",
		msgEmailRequired:   "Please enter your email address.",
		msgEmailInvalid:    "Please enter a valid email address.",
		msgPhoneRequired:   "Please enter your phone number.",
		msgPhoneInvalid:    "Please enter a valid phone number.",
		msgContactInvalid:  "Please check your contact details.",
		msgConsentRequired: "Please accept the terms and conditions.",
		msgRouteRequired:   "Please calculate your route first.",
		msgVehicleRequired: "Please select a vehicle.",
		msgSendFailed:      "Your booking could not be sent. Please try again later.",
	},
	"fr": {
		msgNameRequired:    "Veuillez saisir votre nom.",
		msgEmailRequired:   "Veuillez saisir votre adresse e-mail.",
		msgEmailInvalid:    "Veuillez saisir une adresse e-mail valide.",
		msgPhoneRequired:   "Veuillez saisir votre numéro de téléphone.",
		msgPhoneInvalid:    "Veuillez saisir un numéro de téléphone valide.",
		msgContactInvalid:  "Veuillez vérifier vos coordonnées.",
		msgConsentRequired: "Veuillez accepter les conditions générales.",
		msgRouteRequired:   "Veuillez d'abord calculer votre trajet.",
		msgVehicleRequired: "Veuillez sélectionner un véhicule.",
		msgSendFailed:      "Votre réservation n'a pas pu être envoyée. Veuillez réessayer plus tard.",
	},
}

func message(locale string, key msgKey) string {
	if m, ok := messages[locale]; ok {
		return m[key]
	}
	return messages["en"][key]
}

// SendFailedMessage is the generic text shown when delivery fails.
func SendFailedMessage(locale string) string {
	return message(locale, msgSendFailed)
}
