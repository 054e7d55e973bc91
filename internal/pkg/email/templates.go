package email

// Email templates in HTML format

// BaseTemplate is the base layout for all emails
const BaseTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body {
            margin: 0;
            padding: 0;
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background-color: #f4f5f7;
            color: #1f2430;
        }
        .container {
            max-width: 600px;
            margin: 0 auto;
            padding: 40px 20px;
        }
        .card {
            background: #ffffff;
            border-radius: 12px;
            padding: 32px;
            border: 1px solid #e3e6ec;
        }
        .logo {
            text-align: center;
            margin-bottom: 24px;
        }
        .logo h1 {
            font-size: 24px;
            color: #1d4ed8;
            margin: 0;
        }
        h2 {
            color: #1f2430;
            font-size: 22px;
            margin: 0 0 16px;
        }
        p {
            color: #5a6072;
            font-size: 16px;
            line-height: 1.6;
            margin: 0 0 16px;
        }
        .btn {
            display: inline-block;
            background: #1d4ed8;
            color: #ffffff !important;
            text-decoration: none;
            padding: 14px 28px;
            border-radius: 8px;
            font-weight: 600;
        }
        .footer {
            text-align: center;
            margin-top: 24px;
            color: #9aa1b1;
            font-size: 13px;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="logo"><h1>Galley Support</h1></div>
        <div class="card">
            {{.Content}}
        </div>
        <div class="footer">
            You are receiving this email because of activity on your support ticket.
        </div>
    </div>
</body>
</html>
`

// UnreadMessagesTemplate notifies a recipient about unread chat messages
const UnreadMessagesTemplate = `
<h2>Hi {{.Name}},</h2>
{{if eq .UnreadCount 1}}
<p>You have a new message on your support ticket that you haven't read yet.</p>
{{else}}
<p>You have {{.UnreadCount}} new messages on your support ticket that you haven't read yet.</p>
{{end}}
<p><a class="btn" href="{{.ChatURL}}">Open the chat</a></p>
<p>If you have already read these messages, you can ignore this email.</p>
`

// TicketAssignedTemplate notifies staff about a ticket assignment
const TicketAssignedTemplate = `
<h2>Hi {{.Name}},</h2>
<p>Support ticket <strong>{{.TicketRef}}</strong> has been assigned to you.</p>
<p><a class="btn" href="{{.ChatURL}}">Open the ticket chat</a></p>
`
