package wt

// User-facing text, Japanese first with the English rendering in parentheses.
const (
	TextSaved       = "データが保存されました！ (Data saved successfully!)"
	TextSaveFailed  = "データの保存に失敗しました。(Failed to save data.)"
	TextWeightEmpty = "体重を入力してください。(Weight is required.)"
	TextBadNumber   = "数値を入力してください。(Please enter numbers only.)"
	TextSaving      = "保存中 (Saving...)"

	TextDashboardLoadFailed = "データの読み込みに失敗しました。(Failed to load data.)"
	TextMetricNoData        = "このメトリックのデータはありません。(No data for this metric.)"
	TextDashboardEmpty      = "データがありません。入力画面からデータを記録してください。(No data available. Please record data from the input screen.)"

	TextRecordsLoadFailed = "記録の読み込みに失敗しました。(Failed to load records.)"
	TextRecordsEmpty      = "記録されたデータはありません。(No recorded data.)"
	TextDeleted           = "記録が削除されました。(Entry deleted successfully.)"
	TextDeleteFailed      = "記録の削除に失敗しました。(Failed to delete entry.)"
	TextDeleteConfirm     = "この記録を削除してもよろしいですか？ (Are you sure you want to delete this entry?)"
	TextDeleting          = "削除中 (Deleting...)"

	TextNotAvailable = "N/A"
	TextInvalidDate  = "Invalid Date"
)
