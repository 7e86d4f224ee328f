package notify

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"foldly/internal/event"
)

// displayText synthesizes the user-facing title and description for an
// event. It must be total: missing or zero payload fields fall back to
// safe defaults instead of failing.
func displayText(e event.Event) (title, desc string) {
	switch e.Type {
	case event.FileUploadStart:
		f, _ := event.AsFile(e.Payload)
		return "Uploading file", fileLabel(f)
	case event.FileUploadProgress:
		f, _ := event.AsFile(e.Payload)
		return "Uploading file", fmt.Sprintf("%s — %s", fileLabel(f), pct(f.Progress))
	case event.FileUploadSuccess:
		f, _ := event.AsFile(e.Payload)
		return "File uploaded successfully", fileName(f)
	case event.FileUploadError:
		f, _ := event.AsFile(e.Payload)
		return "File upload failed", withReason(fileName(f), e.Payload)

	case event.FileDownloadSuccess:
		f, _ := event.AsFile(e.Payload)
		return "File downloaded", fileName(f)
	case event.FileDownloadError:
		f, _ := event.AsFile(e.Payload)
		return "File download failed", withReason(fileName(f), e.Payload)
	case event.FileDeleteSuccess:
		f, _ := event.AsFile(e.Payload)
		return "File deleted", fileName(f)
	case event.FileDeleteError:
		f, _ := event.AsFile(e.Payload)
		return "File delete failed", withReason(fileName(f), e.Payload)
	case event.FileRenameSuccess:
		f, _ := event.AsFile(e.Payload)
		return "File renamed", fileName(f)
	case event.FileRenameError:
		f, _ := event.AsFile(e.Payload)
		return "File rename failed", withReason(fileName(f), e.Payload)
	case event.FileMoveSuccess:
		f, _ := event.AsFile(e.Payload)
		if f.TargetFolder != "" {
			return "File moved", fmt.Sprintf("%s → %s", fileName(f), f.TargetFolder)
		}
		return "File moved", fileName(f)
	case event.FileMoveError:
		f, _ := event.AsFile(e.Payload)
		return "File move failed", withReason(fileName(f), e.Payload)

	case event.FolderCreateSuccess:
		fo, _ := event.AsFolder(e.Payload)
		return "Folder created", folderName(fo)
	case event.FolderCreateError:
		fo, _ := event.AsFolder(e.Payload)
		return "Folder create failed", withReason(folderName(fo), e.Payload)
	case event.FolderDeleteSuccess:
		fo, _ := event.AsFolder(e.Payload)
		if fo.ItemCount > 0 {
			return "Folder deleted", fmt.Sprintf("%s (%s)", folderName(fo), plural(fo.ItemCount, "item"))
		}
		return "Folder deleted", folderName(fo)
	case event.FolderDeleteError:
		fo, _ := event.AsFolder(e.Payload)
		return "Folder delete failed", withReason(folderName(fo), e.Payload)
	case event.FolderRenameSuccess:
		fo, _ := event.AsFolder(e.Payload)
		return "Folder renamed", folderName(fo)
	case event.FolderRenameError:
		fo, _ := event.AsFolder(e.Payload)
		return "Folder rename failed", withReason(folderName(fo), e.Payload)
	case event.FolderMoveSuccess:
		fo, _ := event.AsFolder(e.Payload)
		return "Folder moved", folderName(fo)
	case event.FolderMoveError:
		fo, _ := event.AsFolder(e.Payload)
		return "Folder move failed", withReason(folderName(fo), e.Payload)
	case event.FolderReorderSuccess:
		return "Folders reordered", ""

	case event.BatchUploadStart:
		b, _ := event.AsBatch(e.Payload)
		return fmt.Sprintf("Uploading %s", plural(b.TotalItems, "file")), sizeLabel(b.TotalSize)
	case event.BatchUploadProgress:
		b, _ := event.AsBatch(e.Payload)
		return fmt.Sprintf("Uploading %s", plural(b.TotalItems, "file")),
			fmt.Sprintf("%d of %d — %s", b.CompletedItems, b.TotalItems, pct(b.Progress))
	case event.BatchUploadSuccess:
		b, _ := event.AsBatch(e.Payload)
		return fmt.Sprintf("%s uploaded successfully", plural(b.TotalItems, "file")), sizeLabel(b.TotalSize)
	case event.BatchUploadError:
		b, _ := event.AsBatch(e.Payload)
		if b.FailedItems > 0 {
			return "Batch upload failed",
				withReason(fmt.Sprintf("%d of %d failed", b.FailedItems, b.TotalItems), e.Payload)
		}
		return "Batch upload failed", errText(e.Payload)

	case event.LinkCreateSuccess:
		l, _ := event.AsLink(e.Payload)
		return "Upload link created", linkName(l)
	case event.LinkCreateError:
		l, _ := event.AsLink(e.Payload)
		return "Upload link create failed", withReason(linkName(l), e.Payload)
	case event.LinkUpdateSuccess:
		l, _ := event.AsLink(e.Payload)
		return "Upload link updated", linkName(l)
	case event.LinkUpdateError:
		l, _ := event.AsLink(e.Payload)
		return "Upload link update failed", withReason(linkName(l), e.Payload)
	case event.LinkDeleteSuccess:
		l, _ := event.AsLink(e.Payload)
		return "Upload link deleted", linkName(l)
	case event.LinkDeleteError:
		l, _ := event.AsLink(e.Payload)
		return "Upload link delete failed", withReason(linkName(l), e.Payload)
	case event.LinkExpired:
		l, _ := event.AsLink(e.Payload)
		return "Upload link expired", linkName(l)

	case event.ExternalUploadReceived:
		l, _ := event.AsLink(e.Payload)
		who := l.UploaderName
		if who == "" {
			who = "Someone"
		}
		return "New files received", fmt.Sprintf("%s sent %s to %s", who, plural(l.FileCount, "file"), linkName(l))

	case event.StorageQuotaWarning:
		st, _ := event.AsStorage(e.Payload)
		return "Storage almost full",
			fmt.Sprintf("%s used — %s of %s", pct(st.Percent), sizeLabel(st.UsedBytes), sizeLabel(st.LimitBytes))
	case event.StorageQuotaExceeded:
		st, _ := event.AsStorage(e.Payload)
		return "Storage limit reached",
			fmt.Sprintf("%s of %s used", sizeLabel(st.UsedBytes), sizeLabel(st.LimitBytes))

	case event.AuthSignInSuccess:
		a, _ := event.AsAuth(e.Payload)
		return "Signed in", a.Email
	case event.AuthSignInError:
		return "Sign-in failed", errText(e.Payload)
	case event.AuthSessionExpired:
		return "Session expired", "Please sign in again"

	case event.BillingPaymentSuccess:
		b, _ := event.AsBilling(e.Payload)
		return "Payment received", amountLabel(b)
	case event.BillingPaymentError:
		return "Payment failed", errText(e.Payload)
	case event.BillingPlanChanged:
		b, _ := event.AsBilling(e.Payload)
		if b.Plan != "" {
			return "Plan changed", "Now on " + b.Plan
		}
		return "Plan changed", ""

	case event.SystemMaintenance:
		s, _ := event.AsSystem(e.Payload)
		return "Scheduled maintenance", s.Message
	case event.SystemAnnouncement:
		s, _ := event.AsSystem(e.Payload)
		return "Announcement", s.Message

	case event.SettingsUpdateSuccess:
		s, _ := event.AsSettings(e.Payload)
		if s.Setting != "" {
			return "Settings updated", s.Setting
		}
		return "Settings updated", ""
	case event.SettingsUpdateError:
		return "Settings update failed", errText(e.Payload)
	}

	// Unregistered or future types still get a readable presentation.
	if e.Type.IsError() {
		return "Something went wrong", errText(e.Payload)
	}
	return capitalize(e.Type.Category.String()) + " event", ""
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func fileName(f event.FilePayload) string {
	if f.FileName == "" {
		return "file"
	}
	return f.FileName
}

// fileLabel is fileName plus a humanized size when known.
func fileLabel(f event.FilePayload) string {
	if f.FileSize > 0 {
		return fmt.Sprintf("%s (%s)", fileName(f), sizeLabel(f.FileSize))
	}
	return fileName(f)
}

func folderName(f event.FolderPayload) string {
	if f.FolderName == "" {
		return "folder"
	}
	return f.FolderName
}

func linkName(l event.LinkPayload) string {
	if l.LinkName != "" {
		return l.LinkName
	}
	if l.Slug != "" {
		return l.Slug
	}
	return "link"
}

func errText(p event.Payload) string {
	if s := event.ErrorText(p); s != "" {
		return s
	}
	return "Unknown error"
}

func withReason(subject string, p event.Payload) string {
	return subject + ": " + errText(p)
}

func amountLabel(b event.BillingPayload) string {
	if b.AmountCents <= 0 {
		return b.Plan
	}
	cur := b.Currency
	if cur == "" {
		cur = "USD"
	}
	return fmt.Sprintf("%.2f %s", float64(b.AmountCents)/100, cur)
}

func sizeLabel(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}

func plural(n int, word string) string {
	if n <= 0 {
		n = 0
	}
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func pct(v float64) string {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return fmt.Sprintf("%.0f%%", v)
}
