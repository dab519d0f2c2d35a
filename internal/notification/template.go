package notification

import (
	"fmt"

	"github.com/nadiyatra/registration/internal/domain/registration"
)

// Confirmation message bodies. Registrant-facing text is in Bengali, the
// admin email in English.

func confirmationSMS(reg *registration.Registration) string {
	orderRef := reg.ID.String()
	return fmt.Sprintf(`নদী যাত্রা ২০২৬
নাম: %s
পেমেন্ট: %s
Order ID: %s
তারিখ: ১৭ জানুয়ারি ২০২৬
ধন্যবাদ! - রংপুর জেলা সমিতি`, reg.FullName, reg.Amount, orderRef)
}

func adminEmailSubject(reg *registration.Registration) string {
	return fmt.Sprintf("New registration - %s", reg.FullName)
}

func adminEmailBody(reg *registration.Registration) string {
	txID := ""
	if reg.TransactionID != nil {
		txID = *reg.TransactionID
	}
	return fmt.Sprintf(`<h2>New paid registration</h2>
<table>
<tr><td>Name</td><td>%s</td></tr>
<tr><td>Phone</td><td>%s</td></tr>
<tr><td>Type</td><td>%s</td></tr>
<tr><td>Participants</td><td>%d (adults %d, children %d, infants %d)</td></tr>
<tr><td>Amount</td><td>%s</td></tr>
<tr><td>Order ID</td><td>%s</td></tr>
<tr><td>Transaction ID</td><td>%s</td></tr>
</table>`,
		reg.FullName, reg.MobileNumber, reg.ParticipationType,
		reg.TotalParticipants, reg.Adults, reg.Children, reg.Infants,
		reg.Amount, reg.ID, txID)
}

func userEmailSubject() string {
	return "নদী যাত্রা ২০২৬ - আপনার রেজিস্ট্রেশন সফল হয়েছে"
}

func userEmailBody(reg *registration.Registration) string {
	return fmt.Sprintf(`<h2>নদী যাত্রা ২০২৬</h2>
<p>প্রিয় %s,</p>
<p>আপনার রেজিস্ট্রেশন সফল হয়েছে।</p>
<p>পেমেন্ট: %s<br>Order ID: %s<br>অংশগ্রহণকারী: %d</p>
<p>তারিখ: ১৭ জানুয়ারি ২০২৬</p>
<p>ধন্যবাদ - রংপুর জেলা সমিতি</p>`,
		reg.FullName, reg.Amount, reg.ID, reg.TotalParticipants)
}
