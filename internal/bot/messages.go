package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgOk            = `Ok!`
	MsgUnexpectedErr = `Unexpected error: %s`
	MsgStartPrompt   = "Send a Volusion product export (CSV) to start. Add a category export for category columns, then /build."
	MsgVersionInfo   = "Version: %s\nBuilt: %s"
	MsgResetDone     = "Ok, pending uploads cleared."
)

const MsgHelp = `
	*Loadsheet bot*

	1. Send the product export CSV (needs productcode, productname, ischildofproductcode, productprice and the other product columns).
	2. Optionally send the category export CSV (categoryid, categoryname, parentid).
	3. Run /build to get the loadsheet. Use ` + "`/build xlsx`" + ` for a spreadsheet.

	/depth shows or sets the category depth (currently %d).
	/status shows your pending uploads.
	/history lists your recent builds.
	/reset clears your uploads.
`

// =============================================================================
// Upload messages
// =============================================================================

const (
	MsgUploadProducts    = "📦 Product export *%s* saved: %s, %s."
	MsgUploadCategories  = "🗂 Category export *%s* saved: %s, %s."
	MsgUploadNextProduct = "Send the category export too, or /build now."
	MsgUploadNextBuild   = "Run /build when ready."
	MsgUploadNeedProduct = "Now send the product export."
	MsgFileTooLarge      = "File is too large (%s). The limit is %s."
	MsgUnsupportedFile   = "Only CSV files are supported."
	MsgDownloadFailed    = "Error: downloading the file failed"
	MsgFileUnreadable    = "Could not read *%s*: %s"
	MsgUnknownTable      = "*%s* is neither a product export (needs a productcode column) nor a category export (needs categoryid and parentid)."
	MsgSchemaMissing     = "*%s* is missing required columns: %s"
)

// =============================================================================
// Build messages
// =============================================================================

const (
	MsgNoProducts        = "No product export yet. Send the product CSV first."
	MsgBuildStarted      = "Building loadsheet at category depth %d..."
	MsgBuildInProgress   = "A build is already running, please wait."
	MsgBuildFailed       = "Build failed: %s"
	MsgBuildTimedOut     = "Build timed out."
	MsgBuildNoCategories = "No category export, every product gets the category \"Other\"."
	MsgBuildUnknownFmt   = "Unknown format *%s*. Use csv or xlsx."
)

const MsgBuildSummary = `
	✅ Loadsheet ready: %s from %s
	Variant parents dropped: %d
	Invalid prices: %d
	Category fallbacks: %d
	Depth %d, took %s
`

// =============================================================================
// Settings and history messages
// =============================================================================

const (
	MsgDepthCurrent = "Category depth is *%d*. Change it with `/depth <n>` or restore the default with `/depth default`."
	MsgDepthSet     = "✅ Category depth set to *%d*."
	MsgDepthInvalid = "Depth must be a positive whole number."
	MsgNoHistory    = "No builds yet."
	MsgHistoryTitle = "*Recent builds:*\n"
	MsgStatusTitle  = "*Pending uploads:*\n"
	MsgStatusNone   = "No pending uploads."
)

// =============================================================================
// Admin command messages
// =============================================================================

const (
	MsgAdminUsage           = "Usage:\n`/admin users add <user_id>`\n`/admin users remove <user_id>`\n`/admin users list`"
	MsgAdminUserAddUsage    = "Usage: `/admin users add <user_id>`"
	MsgAdminUserRemoveUsage = "Usage: `/admin users remove <user_id>`"
	MsgAdminUserInvalidID   = "Invalid user ID. Give a number."
	MsgAdminUserAdded       = "✅ User `%d` added."
	MsgAdminUserRemoved     = "🗑 User `%d` removed."
	MsgAdminNoUsers         = "No allowed users."
	MsgAdminAllowedUsers    = "*Allowed users:*\n"
)
