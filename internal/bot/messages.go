package bot

const (
	MsgOnboarding     = "Welcome! To get started, please send me your Key. You can get it from https://www.freeconvert.com/account/api-tokens."
	MsgWelcomeBack    = "Welcome back! Send your video files for compression."
	MsgSendNewKey     = "Please send me your new FREE_CONVERT_API_KEY."
	MsgKeySaved       = "✅ API key saved successfully! You can now send video files for compression."
	MsgInvalidKey     = "❌ Invalid API key format. Please send a valid key."
	MsgNoKey          = "You haven't set your API key yet. Please use the /start or /set_key command."
	MsgInvalidVideo   = "Please send a valid video file."
	MsgFileTooLarge   = "❌ File size is too large. Please send a file smaller than %s."
	MsgBusy           = "⏳ The bot is busy, please try again later."
	MsgProcessing     = "Processing your video... Please wait."
	MsgUploading      = "Uploading your video to the compression service..."
	MsgCompressing    = "Compressing your video..."
	MsgDownloading    = "Downloading the compressed video..."
	MsgComplete       = "Compression complete! Sending compressed video..."
	MsgCaption        = "✅ Video compressed successfully!\n📁 Original: %s"
	MsgCompressFailed = "❌ Compression failed. Error: %s"
	MsgDownloadFailed = "❌ Failed to download compressed file. Status code: %d"
	MsgServiceError   = "❌ Compression service error (%d): %s"
	MsgTimeout        = "❌ Compression took too long and was aborted."
	MsgErrorOccurred  = "❌ An error occurred: %v"
	MsgHistoryFailed  = "⚠️ The video was sent, but it could not be saved to your file history."
	MsgNoFiles        = "You have no compressed files yet."
	MsgFilesHeader    = "📁 Your compressed files:\n\n"
	MsgFileEntry      = "ID: %d\nOriginal: %s\nCompressed: %s\nDate: %s\n\n"
	MsgAskFileID      = "Send the ID of the file you want to delete."
	MsgNotANumber     = "❌ Please send the numeric ID of the file."
	MsgInvalidFileID  = "❌ Invalid file number."
	MsgFileDeleted    = "✅ File %d deleted."
	MsgCancelled      = "Cancelled."
	MsgAccessDenied   = "⛔ You are not allowed to use this bot."
	MsgInternalError  = "❌ Something went wrong, please try again later."
	MsgUnknownCommand = "❌ Unknown command. Send /help for the list of commands."
	MsgHelp           = `📚 Available commands:
/start - start the bot
/set_key - set or replace your FreeConvert API key
/my_files - list your compressed files
/delete_file - delete one of your compressed files
/cancel - cancel the current action

Send a video (or a video document) to compress it.`
)
