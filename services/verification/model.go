package verification

import (
	"sort"
	"strconv"
	"time"

	"github.com/kycdao/kycdao-go/types"
)

// VerificationType classifies a verification request.
type VerificationType string

const (
	VerificationTypeKYC                VerificationType = "KYC"
	VerificationTypeAccreditedInvestor VerificationType = "AccreditedInvestor"
)

// RequestStatus is the backend's verification request status.
type RequestStatus string

const (
	RequestStatusCreated     RequestStatus = "Created"
	RequestStatusFailed      RequestStatus = "Failed"
	RequestStatusInReview    RequestStatus = "InReview"
	RequestStatusVerified    RequestStatus = "Verified"
	RequestStatusNotVerified RequestStatus = "NotVerified"
)

// Status is the simplified verification status exposed to callers.
type Status string

const (
	StatusVerified    Status = "Verified"
	StatusProcessing  Status = "Processing"
	StatusNotVerified Status = "NotVerified"
)

// Simplified collapses the backend's request status for callers.
func (s RequestStatus) Simplified() Status {
	switch s {
	case RequestStatusVerified:
		return StatusVerified
	case RequestStatusInReview:
		return StatusProcessing
	default:
		return StatusNotVerified
	}
}

// VerificationRequest is one verification request row on the user.
type VerificationRequest struct {
	ID     int64
	UserID int64
	Type   VerificationType
	Status RequestStatus
}

// ImageType categorizes a selectable token image.
type ImageType string

const (
	ImageTypeIdenticon    ImageType = "Identicon"
	ImageTypeAllowList    ImageType = "AllowList"
	ImageTypeTypeSpecific ImageType = "TypeSpecific"
)

// TokenImage is one selectable NFT image. ID is the stable key of the
// server-provided image map.
type TokenImage struct {
	ID   string
	Type ImageType
	URL  string
}

// User holds the backend-derived user state. EmailConfirmed and
// DisclaimerAccepted are timestamp strings; non-emptiness is the signal.
type User struct {
	ID                   int64
	ExtID                *string
	Email                *string
	EmailConfirmed       *string
	ResidencyCode        *string
	LegalEntity          *bool
	DisclaimerAccepted   *string
	VerificationRequests []VerificationRequest
	AvailableImages      []TokenImage
	SubscriptionExpiry   *time.Time
}

// SessionSnapshot is the authoritative backend-derived state for one
// verification session. It is replaced wholesale on refresh; derived
// properties are always computed fresh from the latest snapshot.
type SessionSnapshot struct {
	SessionID     string
	Nonce         string
	DiscountYears uint32
	User          *User
}

// LoggedIn reports whether login has completed for the session.
func (s *SessionSnapshot) LoggedIn() bool {
	return s.User != nil
}

// EmailConfirmed reports whether the backend recorded an email confirmation.
func (s *SessionSnapshot) EmailConfirmed() bool {
	return s.User != nil && s.User.EmailConfirmed != nil && *s.User.EmailConfirmed != ""
}

// DisclaimerAccepted reports whether the disclaimer acceptance marker is set.
func (s *SessionSnapshot) DisclaimerAccepted() bool {
	return s.User != nil && s.User.DisclaimerAccepted != nil && *s.User.DisclaimerAccepted != ""
}

// RequiredInformationProvided reports whether residency, email and the
// legal-entity flag are all present. A false legal-entity flag counts as
// provided; only a missing flag does not.
func (s *SessionSnapshot) RequiredInformationProvided() bool {
	if s.User == nil {
		return false
	}
	return s.User.ResidencyCode != nil && *s.User.ResidencyCode != "" &&
		s.User.Email != nil && *s.User.Email != "" &&
		s.User.LegalEntity != nil
}

// HasMembership reports whether the user's subscription expires strictly in
// the future.
func (s *SessionSnapshot) HasMembership() bool {
	return s.User != nil && s.User.SubscriptionExpiry != nil &&
		s.User.SubscriptionExpiry.After(time.Now())
}

// VerificationStatus aggregates the user's KYC-typed requests: verified if
// any is verified, else processing if any is in review, else not verified.
// Non-KYC-typed requests never contribute.
func (s *SessionSnapshot) VerificationStatus() Status {
	if s.User == nil {
		return StatusNotVerified
	}

	status := StatusNotVerified
	for _, request := range s.User.VerificationRequests {
		if request.Type != VerificationTypeKYC {
			continue
		}
		switch request.Status.Simplified() {
		case StatusVerified:
			return StatusVerified
		case StatusProcessing:
			status = StatusProcessing
		}
	}
	return status
}

// Identicons returns the identicon-typed images offered for selection,
// ordered by descending id.
func (s *SessionSnapshot) Identicons() []TokenImage {
	if s.User == nil {
		return nil
	}

	var images []TokenImage
	for _, image := range s.User.AvailableImages {
		if image.Type == ImageTypeIdenticon {
			images = append(images, image)
		}
	}

	sort.Slice(images, func(i, j int) bool {
		a, errA := strconv.ParseInt(images[i].ID, 10, 64)
		b, errB := strconv.ParseInt(images[j].ID, 10, 64)
		if errA == nil && errB == nil {
			return a > b
		}
		return images[i].ID > images[j].ID
	})

	return images
}

// snapshotFromResponse maps the backend's session representation into the
// session model.
func snapshotFromResponse(res *types.SessionResponse) *SessionSnapshot {
	snapshot := &SessionSnapshot{
		SessionID: res.ID,
		Nonce:     res.Nonce,
		User:      userFromResponse(res.User),
	}
	if res.DiscountYears != nil {
		snapshot.DiscountYears = *res.DiscountYears
	}
	return snapshot
}

func userFromResponse(res *types.UserResponse) *User {
	if res == nil {
		return nil
	}

	user := &User{
		ID:                 res.ID,
		ExtID:              res.ExtID,
		Email:              res.Email,
		EmailConfirmed:     res.EmailConfirmed,
		ResidencyCode:      res.ResidencyCode,
		LegalEntity:        res.LegalEntity,
		DisclaimerAccepted: res.DisclaimerAccepted,
		SubscriptionExpiry: res.SubscriptionExpiry,
	}

	for _, request := range res.VerificationRequests {
		user.VerificationRequests = append(user.VerificationRequests, VerificationRequest{
			ID:     request.ID,
			UserID: request.UserID,
			Type:   VerificationType(request.VerificationType),
			Status: RequestStatus(request.Status),
		})
	}

	for id, image := range res.AvailableImages {
		user.AvailableImages = append(user.AvailableImages, TokenImage{
			ID:   id,
			Type: ImageType(image.ImageType),
			URL:  image.URL,
		})
	}

	return user
}
